package hardware

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingChannel marks a starship ID lacking one of its required roles.
	ErrMissingChannel = errors.New("missing starship channel")
	// ErrNoStarship reports a manifest without any starship channels.
	ErrNoStarship = errors.New(noStarshipMessage)
	// ErrManifest reports an unreadable or invalid IO manifest.
	ErrManifest = errors.New("invalid io manifest")
)

const noStarshipMessage = `no starship could be found in the IO manifest. To use a starship you must
have an analog input channel named starship_ID_microphone and two analog output
channels named starship_ID_primary and starship_ID_secondary. ID is the name of
the starship that will appear wherever a starship is selected (assuming the
system is configured for more than one starship)`

// MissingChannelError names the starship and the role it lacks.
type MissingChannelError struct {
	ID   string
	Role string
}

func (e *MissingChannelError) Error() string {
	return fmt.Sprintf("must define %s channel", ChannelName(e.ID, e.Role))
}

func (e *MissingChannelError) Is(target error) bool {
	return target == ErrMissingChannel
}
