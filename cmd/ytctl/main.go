// ytctl queries the YouTube library from the command line using the same
// environment configuration as the MCP server.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/anatolykoptev/go_youtube/internal/app"
	"github.com/anatolykoptev/go_youtube/internal/library"
	"github.com/spf13/cobra"
)

type options struct {
	verbose bool
	asJSON  bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		errorColour.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "ytctl",
		Short:         "Query YouTube videos, playlists and channels",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if opts.verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
	}
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log resolution details to stderr")
	root.PersistentFlags().BoolVar(&opts.asJSON, "json", false, "Print JSON instead of text")

	root.AddCommand(
		&cobra.Command{
			Use:   "search <terms...>",
			Short: "Search videos and playlists",
			Args:  cobra.MinimumNArgs(1),
			RunE: withLibrary(func(ctx context.Context, lib *library.Library, out io.Writer, args []string) error {
				res := lib.Search(ctx, library.Query{Any: args})
				if res == nil {
					return fmt.Errorf("no results for %q", strings.Join(args, " "))
				}
				if opts.asJSON {
					return writeJSON(out, res)
				}
				printTracks(out, res.Tracks)
				for _, a := range res.Albums {
					fmt.Fprintf(out, "%s  %s %s\n", titleColour.Sprint(a.Name), dimColour.Sprintf("(%d videos)", a.NumTracks), dimColour.Sprint(a.URI))
				}
				return nil
			}),
		},
		&cobra.Command{
			Use:   "lookup <uri>",
			Short: "Expand a video, playlist or channel URI into tracks",
			Args:  cobra.ExactArgs(1),
			RunE: withLibrary(func(ctx context.Context, lib *library.Library, out io.Writer, args []string) error {
				tracks := lib.Lookup(ctx, args[0])
				if len(tracks) == 0 || tracks[0].IsPlaceholder() {
					return fmt.Errorf("cannot load %s", args[0])
				}
				if opts.asJSON {
					return writeJSON(out, tracks)
				}
				printTracks(out, tracks)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "browse [uri]",
			Short: "List a browse directory (default youtube:browse)",
			Args:  cobra.MaximumNArgs(1),
			RunE: withLibrary(func(ctx context.Context, lib *library.Library, out io.Writer, args []string) error {
				uri := "youtube:browse"
				if len(args) == 1 {
					uri = args[0]
				}
				refs := lib.Browse(ctx, uri)
				if opts.asJSON {
					return writeJSON(out, refs)
				}
				for _, r := range refs {
					fmt.Fprintf(out, "%-9s %s  %s\n", infoColour.Sprint(r.Type), r.Name, dimColour.Sprint(r.URI))
				}
				return nil
			}),
		},
		&cobra.Command{
			Use:   "resolve <uri>",
			Short: "Print the playable audio URL of a video",
			Args:  cobra.ExactArgs(1),
			RunE: withLibrary(func(ctx context.Context, lib *library.Library, out io.Writer, args []string) error {
				u, ok := lib.TranslateURI(ctx, args[0])
				if !ok {
					return fmt.Errorf("no audio for %s", args[0])
				}
				fmt.Fprintln(out, u)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "images <uri...>",
			Short: "Print thumbnails for video and playlist URIs",
			Args:  cobra.MinimumNArgs(1),
			RunE: withLibrary(func(ctx context.Context, lib *library.Library, out io.Writer, args []string) error {
				images := lib.Images(ctx, args)
				if opts.asJSON {
					return writeJSON(out, images)
				}
				for _, uri := range args {
					fmt.Fprintln(out, titleColour.Sprint(uri))
					for _, im := range images[uri] {
						fmt.Fprintf(out, "  %s %s\n", im.URI, dimColour.Sprintf("%dx%d", im.Width, im.Height))
					}
				}
				return nil
			}),
		},
	)
	return root
}

type libraryFunc func(ctx context.Context, lib *library.Library, out io.Writer, args []string) error

// withLibrary builds the library from the environment for one command run.
func withLibrary(run libraryFunc) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := app.Build(ctx, app.ConfigFromEnv())
		if err != nil {
			return err
		}
		defer a.Close()

		start := time.Now()
		err = run(ctx, a.Library, cmd.OutOrStdout(), args)
		slog.Debug("command done", slog.String("cmd", cmd.Name()), slog.Duration("took", time.Since(start)))
		return err
	}
}

func printTracks(out io.Writer, tracks []library.Track) {
	for _, t := range tracks {
		var channel string
		if len(t.Artists) > 0 {
			channel = t.Artists[0].Name
		}
		length := (time.Duration(t.LengthMS) * time.Millisecond).Round(time.Second)
		fmt.Fprintf(out, "%s  %s  %s  %s\n",
			titleColour.Sprint(t.Name), channelColour.Sprint(channel), length, dimColour.Sprint(t.URI))
	}
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
