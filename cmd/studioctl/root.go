package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"studio/internal/config"
	"studio/internal/domain"
)

// cli carries the settings shared by every subcommand.
type cli struct {
	v *viper.Viper
}

func newRootCmd() *cobra.Command {
	c := &cli{v: viper.New()}
	root := &cobra.Command{
		Use:           "studioctl",
		Short:         "Inspect promo video projects offline",
		Long:          "studioctl runs the deterministic parts of the production pipeline locally: scene timing, overlay placement and the render-readiness check.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	c.v.SetEnvPrefix("STUDIO")
	c.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.v.AutomaticEnv()

	root.PersistentFlags().String("profile", "", "pipeline profile YAML (STUDIO_PROFILE)")
	root.PersistentFlags().String("canvas", "", "canvas size as WIDTHxHEIGHT, overrides the profile (STUDIO_CANVAS)")
	root.PersistentFlags().Bool("json", false, "output JSON")
	_ = c.v.BindPFlag("profile", root.PersistentFlags().Lookup("profile"))
	_ = c.v.BindPFlag("canvas", root.PersistentFlags().Lookup("canvas"))
	_ = c.v.BindPFlag("json", root.PersistentFlags().Lookup("json"))

	root.AddCommand(c.timingCmd(), c.placeCmd(), c.readinessCmd())
	return root
}

// profile loads the configured profile and applies the canvas override.
func (c *cli) profile() (config.Profile, error) {
	p, err := config.Load(c.v.GetString("profile"))
	if err != nil {
		return config.Profile{}, err
	}
	if raw := strings.TrimSpace(c.v.GetString("canvas")); raw != "" {
		canvas, err := parseCanvas(raw)
		if err != nil {
			return config.Profile{}, err
		}
		p.Canvas = canvas
	}
	return p, nil
}

func parseCanvas(raw string) (domain.Canvas, error) {
	w, h, ok := strings.Cut(strings.ToLower(raw), "x")
	if !ok {
		return domain.Canvas{}, fmt.Errorf("canvas %q: want WIDTHxHEIGHT", raw)
	}
	width, errW := strconv.Atoi(strings.TrimSpace(w))
	height, errH := strconv.Atoi(strings.TrimSpace(h))
	if errW != nil || errH != nil || width <= 0 || height <= 0 {
		return domain.Canvas{}, fmt.Errorf("canvas %q: dimensions must be positive integers", raw)
	}
	return domain.Canvas{Width: width, Height: height}, nil
}

func (c *cli) wantJSON() bool { return c.v.GetBool("json") }

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func readJSONFile(path string, v any) error {
	var (
		raw []byte
		err error
	)
	if path == "-" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
