package livellm

import (
	"fmt"
	"strings"
)

// Capability is an input modality a model can consume, or an audio action it can perform.
type Capability uint8

const (
	AudioAgent Capability = iota
	ImageAgent
	VideoAgent
	Speak
	Transcribe

	numCapabilities
)

var capabilityNames = [numCapabilities]string{
	AudioAgent: "audio_agent",
	ImageAgent: "image_agent",
	VideoAgent: "video_agent",
	Speak:      "speak",
	Transcribe: "transcribe",
}

func (c Capability) String() string {
	if c >= numCapabilities {
		return fmt.Sprintf("Capability(%d)", uint8(c))
	}
	return capabilityNames[c]
}

// MarshalText implements encoding.TextMarshaler.
func (c Capability) MarshalText() ([]byte, error) {
	if c >= numCapabilities {
		return nil, fmt.Errorf("unknown capability %d", uint8(c))
	}
	return []byte(capabilityNames[c]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Capability) UnmarshalText(text []byte) error {
	parsed, err := ParseCapability(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCapability returns the Capability with the given name, e.g. "image_agent".
func ParseCapability(name string) (Capability, error) {
	for i, n := range capabilityNames {
		if n == name {
			return Capability(i), nil
		}
	}
	return 0, fmt.Errorf("unknown capability %q", name)
}

// CapabilitySet is a set of capabilities.
// The zero value is the empty set.
type CapabilitySet uint8

// NewCapabilitySet returns a set holding the given capabilities.
func NewCapabilitySet(caps ...Capability) CapabilitySet {
	var s CapabilitySet
	for _, c := range caps {
		s = s.With(c)
	}
	return s
}

// With returns a copy of s that also holds c.
func (s CapabilitySet) With(c Capability) CapabilitySet {
	return s | 1<<c
}

// Has reports whether c is in s.
func (s CapabilitySet) Has(c Capability) bool {
	return s&(1<<c) != 0
}

// Contains reports whether every capability in other is also in s.
func (s CapabilitySet) Contains(other CapabilitySet) bool {
	return s&other == other
}

// Slice returns the capabilities in s in declaration order.
func (s CapabilitySet) Slice() []Capability {
	var out []Capability
	for c := Capability(0); c < numCapabilities; c++ {
		if s.Has(c) {
			out = append(out, c)
		}
	}
	return out
}

func (s CapabilitySet) String() string {
	caps := s.Slice()
	names := make([]string, len(caps))
	for i, c := range caps {
		names[i] = c.String()
	}
	return "{" + strings.Join(names, ",") + "}"
}

// RequiredCapability maps the media type of a MIME type to the capability a model needs to
// consume it directly: image/* needs [ImageAgent], video/* needs [VideoAgent] and
// audio/* needs [AudioAgent]. Any other media type yields an [UnsupportedMimeTypeErr].
func RequiredCapability(mimeType string) (Capability, error) {
	mediaType, _, _ := strings.Cut(strings.TrimSpace(mimeType), "/")
	switch strings.ToLower(mediaType) {
	case "image":
		return ImageAgent, nil
	case "video":
		return VideoAgent, nil
	case "audio":
		return AudioAgent, nil
	default:
		return 0, UnsupportedMimeTypeErr(mimeType)
	}
}
