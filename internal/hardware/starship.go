package hardware

import (
	"fmt"
	"regexp"
	"sort"
)

// Starship channel roles.
const (
	RoleMicrophone = "microphone"
	RolePrimary    = "primary"
	RoleSecondary  = "secondary"
)

// RequiredRoles lists the roles every starship must define, in check order.
var RequiredRoles = []string{RoleMicrophone, RolePrimary, RoleSecondary}

var starshipPattern = regexp.MustCompile(`^starship_([^_]+)_([^_]+)$`)

// ChannelName returns the manifest channel name for a starship role.
func ChannelName(id, role string) string {
	return fmt.Sprintf("starship_%s_%s", id, role)
}

// DeviceName returns the device reference for a starship ID.
func DeviceName(id string) string {
	return "starship_" + id
}

// ListStarshipConnections maps each complete starship ID to its device
// reference "starship_<ID>". Any ID missing a role fails the whole call.
func ListStarshipConnections(finder ChannelFinder) (map[string]string, error) {
	starships, err := DescribeStarships(finder)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(starships))
	for _, s := range starships {
		out[s.ID] = s.Device
	}
	return out, nil
}

// Starship is a complete probe assembly and its channels.
type Starship struct {
	ID         string  `json:"id"`
	Device     string  `json:"device"`
	Microphone Channel `json:"microphone"`
	Primary    Channel `json:"primary"`
	Secondary  Channel `json:"secondary"`
}

// DescribeStarships returns every starship in the manifest sorted by ID.
func DescribeStarships(finder ChannelFinder) ([]Starship, error) {
	grouped := make(map[string]map[string]Channel)
	for _, ch := range finder.FindAll(starshipPattern) {
		m := starshipPattern.FindStringSubmatch(ch.Name)
		if m == nil {
			continue
		}
		id, role := m[1], m[2]
		if grouped[id] == nil {
			grouped[id] = make(map[string]Channel)
		}
		grouped[id][role] = ch
	}

	ids := make([]string, 0, len(grouped))
	for id := range grouped {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	starships := make([]Starship, 0, len(ids))
	for _, id := range ids {
		roles := grouped[id]
		for _, role := range RequiredRoles {
			if _, ok := roles[role]; !ok {
				return nil, &MissingChannelError{ID: id, Role: role}
			}
		}
		starships = append(starships, Starship{
			ID:         id,
			Device:     DeviceName(id),
			Microphone: roles[RoleMicrophone],
			Primary:    roles[RolePrimary],
			Secondary:  roles[RoleSecondary],
		})
	}
	if len(starships) == 0 {
		return nil, ErrNoStarship
	}
	return starships, nil
}
