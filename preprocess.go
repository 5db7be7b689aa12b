package livellm

import (
	"context"
	"fmt"
)

const audioTransformPrompt = `You will act as ASR.
You will be given an audio file and you will need to transcribe it to text.
Transcribe the audio in a language that is most likely to be the language of the audio.
Return ONLY the text of the transcription. Nothing more
Return result like this:
<audio_transcription>
[text of the transcription]
</audio_transcription>`

const imageTransformPrompt = `You will act as OCR.
You will be given an image file and you will need to fully describe the image in detail.
Return ONLY description of the image. Nothing more
The description should be in a language that is most likely to be the language of the image.
Return result like this:
<image_description>
[description of the image]
</image_description>`

const videoTransformPrompt = `You will act as VSR.
You will be given a video file and you will need to fully describe the video in detail, shot by shot.
Return ONLY description of the video. Nothing more
The description should be in a language that is most likely to be the language of the video.
Return result like this:
<video_description>
[description of the video]
</video_description>`

// transformPrompt returns the system instruction used to turn input of the given
// capability into text.
func transformPrompt(c Capability) string {
	switch c {
	case AudioAgent:
		return audioTransformPrompt
	case ImageAgent:
		return imageTransformPrompt
	case VideoAgent:
		return videoTransformPrompt
	}
	return ""
}

// requiredCapabilities returns the capability needed by each binary message, in message
// order. Duplicates are kept.
func requiredCapabilities(messages []Message) ([]Capability, error) {
	var required []Capability
	for _, m := range messages {
		bin, ok := m.(BinaryMessage)
		if !ok {
			continue
		}
		c, err := RequiredCapability(bin.MimeType)
		if err != nil {
			return nil, err
		}
		required = append(required, c)
	}
	return required, nil
}

// preprocess makes messages consumable by model.
//
// The capabilities of model come from override when set and from the registry otherwise.
// If force is set, or any binary message needs a capability model lacks, every binary
// message is replaced in place by a text message holding its transcription or description.
// Otherwise messages is returned unchanged.
func (c *Client) preprocess(ctx context.Context, messages []Message, model string, force bool, override *CapabilitySet) ([]Message, error) {
	var caps CapabilitySet
	if override != nil {
		caps = *override
	} else {
		var err error
		if caps, err = c.registry.CapabilitiesForModel(model); err != nil {
			return nil, err
		}
	}

	if !force {
		required, err := requiredCapabilities(messages)
		if err != nil {
			return nil, err
		}
		supported := true
		for _, rc := range required {
			if !caps.Has(rc) {
				supported = false
				break
			}
		}
		if supported {
			return messages, nil
		}
	}

	return c.binariesToText(ctx, messages, model, caps)
}

func (c *Client) binariesToText(ctx context.Context, messages []Message, model string, caps CapabilitySet) ([]Message, error) {
	out := make([]Message, len(messages))
	for i, m := range messages {
		bin, ok := m.(BinaryMessage)
		if !ok {
			out[i] = m
			continue
		}
		text, err := c.binaryToText(ctx, bin, model, caps)
		if err != nil {
			return nil, fmt.Errorf("transform message %d (%s): %w", i, bin.MimeType, err)
		}
		out[i] = TextMessage{Role: bin.Role, Content: text}
	}
	return out, nil
}

// binaryToText asks a model able to read bin to transcribe or describe it.
func (c *Client) binaryToText(ctx context.Context, bin BinaryMessage, model string, caps CapabilitySet) (string, error) {
	need, err := RequiredCapability(bin.MimeType)
	if err != nil {
		return "", err
	}

	cands := c.transformCandidates(model, caps, need)
	if len(cands) == 0 {
		return "", NoCapableModelErr{Capability: need}
	}

	req := AgentRequest{
		Messages: []Message{
			TextMessage{Role: System, Content: transformPrompt(need)},
			bin,
		},
		GenConfig: map[string]any{"temperature": 0.0},
	}

	c.logger.Debug("transforming binary message",
		"model", model,
		"mime_type", bin.MimeType,
		"capability", need.String(),
		"candidates", len(cands),
	)

	resp, err := runWithFallback(ctx, c.fallback, need.String()+" transform", cands, func(ctx context.Context, cand candidate) (AgentResponse, error) {
		r := req
		r.Model = cand.model
		return c.transport.AgentRun(ctx, r, cand.creds)
	})
	if err != nil {
		return "", err
	}
	return resp.Output, nil
}

// transformCandidates lists the (model, credentials) pairs able to read input needing
// capability need. The target model comes first when caps says it has the capability,
// followed by every other registered model that has it.
func (c *Client) transformCandidates(model string, caps CapabilitySet, need Capability) []candidate {
	var cands []candidate
	seen := make(map[candidate]bool)
	add := func(cand candidate) {
		if !seen[cand] {
			seen[cand] = true
			cands = append(cands, cand)
		}
	}

	if caps.Has(need) {
		// A model that is only known through a capability override has no credentials
		// and cannot be tried.
		if creds, err := c.registry.ProvidersForModel(model); err == nil {
			for _, cr := range creds {
				add(candidate{model: model, creds: cr})
			}
		}
	}
	for _, ref := range c.registry.ModelsWithCapability(need) {
		add(candidate{model: ref.Model.Name, creds: ref.Creds})
	}
	return cands
}
