package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/casualjim/hoot/being"
	"github.com/casualjim/hoot/internal/web"
	"github.com/casualjim/hoot/messages"
	"github.com/casualjim/hoot/retrieval/bleve"
	"github.com/casualjim/hoot/tool"
	"github.com/casualjim/hoot/tools/builtin"
	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/k0kubun/pp/v3"
	"github.com/spf13/cobra"
)

func serveCmd(g *globals) *cobra.Command {
	var host string
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the being over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("host") {
				g.cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				g.cfg.Server.Port = port
			}

			ctx := cmd.Context()
			a, err := newApp(ctx, g.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			srv := web.New(a.rt, g.cfg.Server.Addr())
			addr, err := srv.Start()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is listening on http://%s\n", a.rt.Being().Character.Name, addr)

			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "address to bind")
	cmd.Flags().IntVar(&port, "port", 0, "port to bind")
	return cmd
}

func chatCmd(g *globals) *cobra.Command {
	var conversation string
	var plain bool
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the being in the terminal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, g.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			sub, err := a.events.Topic(ctx, a.rt.Being().ContextID).Subscribe(ctx, newConsoleHook(out))
			if err != nil {
				return err
			}
			defer sub.Unsubscribe()

			rl, err := readline.New(color.CyanString("You") + ": ")
			if err != nil {
				return fmt.Errorf("create readline: %w", err)
			}
			defer rl.Close()

			return chatLoop(ctx, rl, out, a, conversation, newRenderer(plain))
		},
	}
	cmd.Flags().StringVar(&conversation, "conversation", "", "conversation id (defaults to the being's context id)")
	cmd.Flags().BoolVar(&plain, "plain", false, "print replies without markdown rendering")
	return cmd
}

func chatLoop(ctx context.Context, rl *readline.Instance, out io.Writer, a *app, conversation string, r *renderer) error {
	name := a.rt.Being().Character.Name
	fmt.Fprintf(out, "Chatting with %s. Type 'exit' to quit.\n\n", color.MagentaString(name))
	for {
		input, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
				fmt.Fprintln(out, "Goodbye!")
				return nil
			}
			return fmt.Errorf("read input: %w", err)
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
			fmt.Fprintln(out, "Goodbye!")
			return nil
		}

		res, err := a.rt.Respond(ctx, conversation, input)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Fprintf(out, "%s %v\n\n", color.RedString("Error:"), err)
			continue
		}
		fmt.Fprint(out, color.MagentaString(name)+":\n"+r.Render(res.Text))
	}
}

func beingCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "being",
		Short: "Inspect the being",
	}

	var raw bool
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the being definition",
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := being.Load(g.cfg.Being)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if raw {
				pp.Fprintln(out, b)
				return nil
			}
			data, err := b.YAML()
			if err != nil {
				return err
			}
			_, err = out.Write(data)
			return err
		},
	}
	show.Flags().BoolVar(&raw, "raw", false, "pretty print the decoded structure")

	prompt := &cobra.Command{
		Use:   "prompt",
		Short: "Print the system prompt the being would send",
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := being.Load(g.cfg.Being)
			if err != nil {
				return err
			}
			tools := tool.NewRegistry()
			if err := builtin.Register(tools, nil); err != nil {
				return err
			}
			text, err := b.Prompt("", tools.Definitions())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}

	cmd.AddCommand(show, prompt)
	return cmd
}

func historyCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show or clear stored conversations",
	}

	var conversation string
	var limit int
	show := &cobra.Command{
		Use:   "show",
		Short: "Print a conversation transcript",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), g.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			turns, err := a.rt.History(cmd.Context(), conversation, limit)
			if err != nil {
				return err
			}
			printTranscript(cmd.OutOrStdout(), turns)
			return nil
		},
	}
	show.Flags().StringVar(&conversation, "conversation", "", "conversation id (defaults to the being's context id)")
	show.Flags().IntVar(&limit, "limit", 0, "show only the last N turns")

	var all bool
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete a conversation, or every conversation with --all",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), g.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if all {
				if err := a.rt.ClearAll(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "All conversations cleared.")
				return nil
			}
			if err := a.rt.Clear(cmd.Context(), conversation); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Conversation cleared.")
			return nil
		},
	}
	clearCmd.Flags().StringVar(&conversation, "conversation", "", "conversation id (defaults to the being's context id)")
	clearCmd.Flags().BoolVar(&all, "all", false, "clear every conversation")

	cmd.AddCommand(show, clearCmd)
	return cmd
}

func printTranscript(w io.Writer, turns []messages.Turn) {
	if len(turns) == 0 {
		fmt.Fprintln(w, "No messages.")
		return
	}
	for _, t := range turns {
		who := string(t.Role)
		switch t.Role {
		case messages.RoleUser:
			who = color.CyanString("user")
		case messages.RoleAssistant:
			who = color.MagentaString("assistant")
		case messages.RoleTool:
			who = color.YellowString("tool " + t.ToolName)
		}
		fmt.Fprintf(w, "%s %s: %s\n", color.HiBlackString(t.Time().Format(time.DateTime)), who, t.Content)
	}
}

func toolsCmd(_ *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Inspect the available tools",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the builtin tools",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tools := tool.NewRegistry()
			if err := builtin.Register(tools, nil); err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, def := range tools.Definitions() {
				fmt.Fprintf(tw, "%s\t%s\n", def.Name, def.Description)
			}
			return tw.Flush()
		},
	})
	return cmd
}

func ingestCmd(g *globals) *cobra.Command {
	var query string
	cmd := &cobra.Command{
		Use:   "ingest <dir>",
		Short: "Index a knowledge directory and optionally query it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := bleve.New()
			if err != nil {
				return err
			}
			defer index.Close()

			stats, err := index.IngestDir(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Indexed %d files (%d skipped) into %d chunks.\n", stats.Files, stats.Skipped, stats.Chunks)

			if query == "" {
				return nil
			}
			text, err := index.Retrieve(cmd.Context(), query, g.cfg.Retrieval.TopK)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, text)
			return nil
		},
	}
	cmd.Flags().StringVar(&query, "query", "", "query the index after ingesting")
	return cmd
}

func configCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration (API keys redacted)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return g.cfg.Redact().Write(cmd.OutOrStdout())
		},
	})
	return cmd
}
