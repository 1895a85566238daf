package hardware_test

import (
	"errors"
	"path/filepath"
	"reflect"
	"regexp"
	"strings"
	"testing"

	"cfts/internal/hardware"
	"cfts/internal/testsupport"
)

type channelList []string

func (c channelList) FindAll(pattern *regexp.Regexp) []hardware.Channel {
	var out []hardware.Channel
	for _, name := range c {
		if pattern.MatchString(name) {
			out = append(out, hardware.Channel{Name: name})
		}
	}
	return out
}

func TestListStarshipConnections(t *testing.T) {
	tests := []struct {
		name     string
		channels channelList
		want     map[string]string
		wantErr  error
		wantRole string
	}{
		{
			name:     "single complete starship",
			channels: channelList{"starship_A_microphone", "starship_A_primary", "starship_A_secondary", "speaker_1"},
			want:     map[string]string{"A": "starship_A"},
		},
		{
			name: "two starships",
			channels: channelList{
				"starship_L_microphone", "starship_L_primary", "starship_L_secondary",
				"starship_R_microphone", "starship_R_primary", "starship_R_secondary",
			},
			want: map[string]string{"L": "starship_L", "R": "starship_R"},
		},
		{
			name:     "missing secondary",
			channels: channelList{"starship_A_microphone", "starship_A_primary"},
			wantErr:  hardware.ErrMissingChannel,
			wantRole: "starship_A_secondary",
		},
		{
			name:     "one incomplete among complete",
			channels: channelList{"starship_A_microphone", "starship_A_primary", "starship_A_secondary", "starship_B_primary"},
			wantErr:  hardware.ErrMissingChannel,
			wantRole: "starship_B_microphone",
		},
		{
			name:     "no starships",
			channels: channelList{"speaker_1", "mic_2", "starship_A_extra_primary"},
			wantErr:  hardware.ErrNoStarship,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := hardware.ListStarshipConnections(tt.channels)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				if tt.wantRole != "" && !strings.Contains(err.Error(), tt.wantRole) {
					t.Fatalf("error %q should name %s", err, tt.wantRole)
				}
				return
			}
			if err != nil {
				t.Fatalf("ListStarshipConnections: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMissingChannelErrorFields(t *testing.T) {
	_, err := hardware.ListStarshipConnections(channelList{"starship_A_microphone", "starship_A_secondary"})
	var missing *hardware.MissingChannelError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingChannelError, got %v", err)
	}
	if missing.ID != "A" || missing.Role != hardware.RolePrimary {
		t.Fatalf("unexpected fields: %+v", missing)
	}
}

func TestNoStarshipMessageNamesExpectedChannels(t *testing.T) {
	_, err := hardware.ListStarshipConnections(channelList{})
	for _, want := range []string{"starship_ID_microphone", "starship_ID_primary", "starship_ID_secondary"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error should mention %s: %v", want, err)
		}
	}
}

func TestLoadManifestAndDescribe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "io.toml")
	testsupport.WriteManifest(t, path, testsupport.StarshipChannels("B")...)

	manifest, err := hardware.LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	starships, err := hardware.DescribeStarships(manifest)
	if err != nil {
		t.Fatalf("DescribeStarships: %v", err)
	}
	if len(starships) != 1 {
		t.Fatalf("expected one starship, got %+v", starships)
	}
	s := starships[0]
	if s.ID != "B" || s.Device != "starship_B" {
		t.Fatalf("unexpected starship: %+v", s)
	}
	if s.Microphone.Direction != hardware.DirectionInput || s.Primary.Direction != hardware.DirectionOutput {
		t.Fatalf("unexpected directions: %+v", s)
	}
	if s.Microphone.Device != "Dev1" || s.Microphone.SampleRate != 100000 {
		t.Fatalf("unexpected channel detail: %+v", s.Microphone)
	}
}

func TestParseManifestRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"bad direction": "[[channel]]\nname = \"x\"\ndirection = \"sideways\"\n",
		"duplicate":     "[[channel]]\nname = \"x\"\ndirection = \"input\"\n[[channel]]\nname = \"x\"\ndirection = \"input\"\n",
		"no name":       "[[channel]]\ndirection = \"input\"\n",
		"not toml":      "[[channel",
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := hardware.ParseManifest([]byte(data)); !errors.Is(err, hardware.ErrManifest) {
				t.Fatalf("err = %v, want ErrManifest", err)
			}
		})
	}
}

func TestLoadManifestMissingFile(t *testing.T) {
	if _, err := hardware.LoadManifest(filepath.Join(t.TempDir(), "absent.toml")); !errors.Is(err, hardware.ErrManifest) {
		t.Fatalf("err = %v, want ErrManifest", err)
	}
}

func TestCreateSampleManifestDescribesStarships(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "io.toml")
	created, err := hardware.CreateSampleManifest(path, "Dev1", 100000, "A", "B")
	if err != nil || !created {
		t.Fatalf("CreateSampleManifest: created=%v err=%v", created, err)
	}
	manifest, err := hardware.LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	starships, err := hardware.DescribeStarships(manifest)
	if err != nil {
		t.Fatalf("DescribeStarships: %v", err)
	}
	if len(starships) != 2 || starships[0].ID != "A" || starships[1].ID != "B" {
		t.Fatalf("unexpected starships: %+v", starships)
	}
	if starships[0].Microphone.Direction != hardware.DirectionInput || starships[0].Secondary.Direction != hardware.DirectionOutput {
		t.Fatalf("unexpected directions: %+v", starships[0])
	}
	if starships[1].Primary.SampleRate != 100000 || starships[1].Primary.Device != "Dev1" {
		t.Fatalf("unexpected channel: %+v", starships[1].Primary)
	}

	created, err = hardware.CreateSampleManifest(path, "Dev2", 1, "C")
	if err != nil || created {
		t.Fatalf("second call should keep the file: created=%v err=%v", created, err)
	}
}

func TestSampleManifestRejectsUnderscoreID(t *testing.T) {
	if _, err := hardware.SampleManifest("Dev1", 100000, "A_1"); !errors.Is(err, hardware.ErrManifest) {
		t.Fatalf("err = %v, want ErrManifest", err)
	}
}
