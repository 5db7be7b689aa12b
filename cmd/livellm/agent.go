package main

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/livellm/livellm-go"
)

type agentFlags struct {
	model          string
	system         string
	files          []string
	caption        string
	forceTransform bool
	capabilities   []string
	webSearch      string
	mcpServers     []string
	temperature    float64
	showMessages   bool
}

func (f *agentFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVarP(&f.model, "model", "m", "", "model name (required)")
	fl.StringVarP(&f.system, "system", "s", "", "system prompt")
	fl.StringArrayVarP(&f.files, "file", "f", nil, "attach an image, audio or video file (repeatable)")
	fl.StringVar(&f.caption, "caption", "", "caption for attached files")
	fl.BoolVar(&f.forceTransform, "force-transform", false, "convert attachments to text even if the model can read them")
	fl.StringSliceVar(&f.capabilities, "capabilities", nil, "override the model's capabilities, e.g. image_agent,audio_agent")
	fl.StringVar(&f.webSearch, "web-search", "", "enable web search with context size low, medium or high")
	fl.StringArrayVar(&f.mcpServers, "mcp", nil, "add an MCP server as prefix=url (repeatable)")
	fl.Float64Var(&f.temperature, "temperature", -1, "sampling temperature; unset uses the provider default")
	fl.BoolVar(&f.showMessages, "show-messages", false, "print the messages actually sent and their estimated token count to stderr")
	_ = cmd.MarkFlagRequired("model")
}

// request builds the messages, tools and options of an agent call from the flags and the
// prompt given as arguments.
func (f *agentFlags) request(args []string) ([]livellm.Message, []livellm.Tool, *livellm.AgentOptions, error) {
	var messages []livellm.Message
	if f.system != "" {
		messages = append(messages, livellm.TextMessage{Role: livellm.System, Content: f.system})
	}
	for _, path := range f.files {
		msg, err := readAttachment(path, f.caption)
		if err != nil {
			return nil, nil, nil, err
		}
		messages = append(messages, msg)
	}
	if prompt := strings.TrimSpace(strings.Join(args, " ")); prompt != "" {
		messages = append(messages, livellm.TextMessage{Role: livellm.User, Content: prompt})
	}
	if len(messages) == 0 {
		return nil, nil, nil, errors.New("nothing to send: give a prompt or attach a file")
	}

	var tools []livellm.Tool
	if f.webSearch != "" {
		tools = append(tools, livellm.WebSearch{ContextSize: livellm.SearchContextSize(f.webSearch)})
	}
	for _, s := range f.mcpServers {
		prefix, u, ok := strings.Cut(s, "=")
		if !ok || prefix == "" || u == "" {
			return nil, nil, nil, fmt.Errorf("invalid --mcp value %q, want prefix=url", s)
		}
		tools = append(tools, livellm.MCPServer{URL: u, Prefix: prefix})
	}

	opts := &livellm.AgentOptions{ForceTransform: f.forceTransform}
	if len(f.capabilities) > 0 {
		var caps livellm.CapabilitySet
		for _, name := range f.capabilities {
			c, err := livellm.ParseCapability(strings.TrimSpace(name))
			if err != nil {
				return nil, nil, nil, err
			}
			caps = caps.With(c)
		}
		opts.Capabilities = &caps
	}
	if f.temperature >= 0 {
		opts.GenConfig = map[string]any{"temperature": f.temperature}
	}
	return messages, tools, opts, nil
}

func readAttachment(path, caption string) (livellm.BinaryMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return livellm.BinaryMessage{}, fmt.Errorf("read attachment: %w", err)
	}
	return livellm.NewBinaryMessage(data, detectMimeType(path, data), caption), nil
}

func detectMimeType(path string, data []byte) string {
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); t != "" {
		mediaType, _, _ := strings.Cut(t, ";")
		return mediaType
	}
	mediaType, _, _ := strings.Cut(http.DetectContentType(data), ";")
	return mediaType
}

func (a *app) printMessages(w io.Writer, messages []livellm.Message) {
	for i, m := range messages {
		switch msg := m.(type) {
		case livellm.TextMessage:
			fmt.Fprintf(w, "[%d] %s: %s\n", i, msg.Role, msg.Content)
		case livellm.BinaryMessage:
			fmt.Fprintf(w, "[%d] %s: <%s, %d bytes>\n", i, msg.Role, msg.MimeType, len(msg.Content))
		}
	}
	n, err := a.client.EstimateTokens(messages)
	if err != nil {
		dimColor.Fprintf(w, "estimated prompt tokens: unavailable (%v)\n", err)
		return
	}
	dimColor.Fprintf(w, "estimated prompt tokens: %d\n", n)
}

// echoChunks writes each chunk's output to w as it arrives.
func echoChunks(w io.Writer, seq iter.Seq2[livellm.AgentResponse, error]) iter.Seq2[livellm.AgentResponse, error] {
	return func(yield func(livellm.AgentResponse, error) bool) {
		for chunk, err := range seq {
			if err == nil {
				fmt.Fprint(w, chunk.Output)
			}
			if !yield(chunk, err) {
				return
			}
		}
	}
}

func (a *app) runCmd() *cobra.Command {
	var f agentFlags
	cmd := &cobra.Command{
		Use:   "run [prompt...]",
		Short: "Run an agent call and print the output",
		RunE: func(cmd *cobra.Command, args []string) error {
			messages, tools, opts, err := f.request(args)
			if err != nil {
				return err
			}
			resp, sent, err := a.client.RunAgent(cmd.Context(), f.model, messages, tools, opts)
			if f.showMessages && sent != nil {
				a.printMessages(cmd.ErrOrStderr(), sent)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.Output)
			dimColor.Fprintf(cmd.ErrOrStderr(), "tokens: %d in, %d out\n", resp.Usage.InputTokens, resp.Usage.OutputTokens)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func (a *app) streamCmd() *cobra.Command {
	var f agentFlags
	cmd := &cobra.Command{
		Use:   "stream [prompt...]",
		Short: "Run an agent call and print the output as it streams",
		RunE: func(cmd *cobra.Command, args []string) error {
			messages, tools, opts, err := f.request(args)
			if err != nil {
				return err
			}
			seq, sent, err := a.client.RunAgentStream(cmd.Context(), f.model, messages, tools, opts)
			if f.showMessages && sent != nil {
				a.printMessages(cmd.ErrOrStderr(), sent)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			resp, err := livellm.CollectStream(echoChunks(out, seq))
			fmt.Fprintln(out)
			if err != nil {
				return err
			}
			dimColor.Fprintf(cmd.ErrOrStderr(), "tokens: %d in, %d out\n", resp.Usage.InputTokens, resp.Usage.OutputTokens)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}
