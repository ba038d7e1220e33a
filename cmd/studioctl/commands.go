package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"studio/internal/domain"
	"studio/internal/pipeline"
	"studio/internal/placement"
	"studio/internal/storage"
	"studio/internal/timing"
)

// errNotReady is returned when the readiness check fails so the process
// exits non-zero.
var errNotReady = errors.New("project is not render ready")

func (c *cli) timingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "timing <scenes.json>",
		Short: "Compute scene durations from narration",
		Long:  "Reads a JSON list of parsed scenes (or an object with a \"scenes\" list) and prints the duration of each scene. Use - for stdin.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prof, err := c.profile()
			if err != nil {
				return err
			}
			inputs, err := readScenes(args[0])
			if err != nil {
				return err
			}
			p, err := domain.NewProject("", inputs, time.Now().UTC())
			if err != nil {
				return err
			}
			total := prof.Timing.Sync(p)
			out := cmd.OutOrStdout()
			if c.wantJSON() {
				return printJSON(out, map[string]any{"scenes": p.Scenes, "totalDuration": total})
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(out)
			tw.AppendHeader(table.Row{"#", "Type", "Words", "Duration (s)"})
			for _, s := range p.Scenes {
				tw.AppendRow(table.Row{s.Order + 1, s.Type, timing.WordCount(s.Narration), fmt.Sprintf("%.2f", s.Duration)})
			}
			tw.AppendFooter(table.Row{"", "", "Total", fmt.Sprintf("%.2f", total)})
			tw.Render()
			return nil
		},
	}
}

func readScenes(path string) ([]domain.SceneInput, error) {
	var raw json.RawMessage
	if err := readJSONFile(path, &raw); err != nil {
		return nil, err
	}
	var inputs []domain.SceneInput
	if bytes.HasPrefix(bytes.TrimSpace(raw), []byte("[")) {
		if err := json.Unmarshal(raw, &inputs); err != nil {
			return nil, err
		}
		return inputs, nil
	}
	var wrapped struct {
		Scenes []domain.SceneInput `json:"scenes"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, err
	}
	return wrapped.Scenes, nil
}

func (c *cli) placeCmd() *cobra.Command {
	var (
		size     string
		anchor   string
		aspect   float64
		occupied []string
	)
	cmd := &cobra.Command{
		Use:   "place",
		Short: "Resolve overlay rectangles on the canvas",
		Long:  "Without --anchor, places the profile's logo, product and text overlays in order. With --anchor, places a single overlay.",
		RunE: func(cmd *cobra.Command, args []string) error {
			prof, err := c.profile()
			if err != nil {
				return err
			}
			taken, err := parseRects(occupied)
			if err != nil {
				return err
			}
			layout := placement.NewLayout(prof.Canvas)
			layout.Margin = prof.Placement.Margin

			names := []string{"logo", "product", "text"}
			reqs := []placement.Request{prof.Placement.Logo, prof.Placement.Product, prof.Placement.Text}
			if anchor != "" {
				names = []string{"overlay"}
				reqs = []placement.Request{{Size: placement.Size(size), Anchor: placement.Anchor(anchor), AspectRatio: aspect}}
			}
			placed := layout.PlaceAll(reqs, taken)

			out := cmd.OutOrStdout()
			if c.wantJSON() {
				res := make(map[string]domain.Placement, len(placed))
				for i, p := range placed {
					res[names[i]] = p
				}
				return printJSON(out, res)
			}
			tw := table.NewWriter()
			tw.SetOutputMirror(out)
			tw.SetTitle(fmt.Sprintf("canvas %dx%d", prof.Canvas.Width, prof.Canvas.Height))
			tw.AppendHeader(table.Row{"Overlay", "Anchor", "X", "Y", "Width", "Height", "Flipped"})
			for i, p := range placed {
				tw.AppendRow(table.Row{names[i], p.Anchor, p.Rect.X, p.Rect.Y, p.Rect.Width, p.Rect.Height, p.Flipped})
			}
			tw.Render()
			return nil
		},
	}
	cmd.Flags().StringVar(&size, "size", string(placement.SizeMedium), "overlay size (small, medium, large, xlarge)")
	cmd.Flags().StringVar(&anchor, "anchor", "", "anchor of a single overlay, e.g. bottom-right")
	cmd.Flags().Float64Var(&aspect, "aspect", 1, "overlay width/height ratio")
	cmd.Flags().StringSliceVar(&occupied, "occupied", nil, "occupied rect as x:y:w:h (repeatable)")
	return cmd
}

func parseRects(values []string) ([]domain.Rect, error) {
	out := make([]domain.Rect, 0, len(values))
	for _, v := range values {
		var r domain.Rect
		if _, err := fmt.Sscanf(strings.TrimSpace(v), "%d:%d:%d:%d", &r.X, &r.Y, &r.Width, &r.Height); err != nil {
			return nil, fmt.Errorf("occupied rect %q: want x:y:w:h", v)
		}
		out = append(out, r)
	}
	return out, nil
}

func (c *cli) readinessCmd() *cobra.Command {
	var (
		trusted   []string
		allowHTTP bool
	)
	cmd := &cobra.Command{
		Use:   "readiness <project.json>",
		Short: "Check whether a project document can be rendered",
		Long:  "Runs the render-readiness check against a project document without uploading anything. Exits non-zero when the project is not ready.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prof, err := c.profile()
			if err != nil {
				return err
			}
			var p domain.VideoProject
			if err := readJSONFile(args[0], &p); err != nil {
				return err
			}
			pl := pipeline.New(pipeline.Options{
				Profile: prof,
				Policy:  storage.Policy{Trusted: append(trusted, prof.TrustedPrefixes...), AllowHTTP: allowHTTP},
				Fetcher: offlineFetcher{},
			})
			res := pl.CheckReadiness(context.Background(), &p)

			out := cmd.OutOrStdout()
			if c.wantJSON() {
				if err := printJSON(out, map[string]any{"valid": res.Valid, "issues": res.Issues}); err != nil {
					return err
				}
			} else {
				tw := table.NewWriter()
				tw.SetOutputMirror(out)
				tw.SetTitle(fmt.Sprintf("%s: valid=%t", p.ID, res.Valid))
				tw.AppendHeader(table.Row{"Severity", "Code", "Scene", "Message"})
				for _, is := range res.Issues {
					tw.AppendRow(table.Row{is.Severity, is.Code, is.SceneID, is.Message})
				}
				tw.Render()
			}
			if !res.Valid {
				return errNotReady
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&trusted, "trusted", nil, "URL prefix of durable storage (repeatable)")
	cmd.Flags().BoolVar(&allowHTTP, "allow-http", false, "treat plain http URLs as durable")
	return cmd
}

// offlineFetcher refuses downloads so the check never touches the network.
type offlineFetcher struct{}

func (offlineFetcher) Fetch(context.Context, string) ([]byte, string, error) {
	return nil, "", errors.New("offline: downloads disabled")
}
