package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/neurodesk/liquid/pkg/liquid"
	"github.com/neurodesk/liquid/pkg/netcache"
	"github.com/neurodesk/liquid/pkg/sourcemap"
	"github.com/neurodesk/liquid/pkg/vars"
)

func addRenderFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringArray("vars", nil, "Load variables from a YAML, JSON or Starlark file or URL (repeatable)")
	f.StringArray("set", nil, "Set a variable as KEY.PATH=VALUE (repeatable)")
	f.Bool("strict", false, "Leave conditions on undefined variables untouched")
	f.Bool("legacy", false, "Use the legacy condition resolver")
	f.Bool("no-conditions", false, "Do not resolve conditions")
	f.Bool("no-cycles", false, "Do not resolve for loops")
	f.Bool("no-substitutions", false, "Do not substitute variables")
	f.Bool("in-code", false, "Resolve conditions inside code fences")
	f.Bool("keep-not-var", false, "Keep the not_var prefix of escaped substitutions")
	f.Bool("keep-true-syntax", false, "Keep the tags of conditions that evaluate to true")
	f.Int("max-depth", 0, "Maximum nesting depth of loop bodies")
}

// applyFlags overrides the config with the flags set on the command line.
func applyFlags(cmd *cobra.Command, cfg *liquidConfig) error {
	f := cmd.Flags()
	set := func(name string, apply func(bool)) {
		if f.Changed(name) {
			v, _ := f.GetBool(name)
			apply(v)
		}
	}
	s := &cfg.Settings
	set("strict", func(v bool) {
		if v {
			s.Conditions = liquid.ConditionsStrict
		}
	})
	set("no-conditions", func(v bool) {
		if v {
			s.Conditions = liquid.ConditionsOff
		}
	})
	set("legacy", func(v bool) { s.LegacyConditions = v })
	set("no-cycles", func(v bool) { s.Cycles = !v })
	set("no-substitutions", func(v bool) { s.Substitutions = !v })
	set("in-code", func(v bool) { s.ConditionsInCode = v })
	set("keep-not-var", func(v bool) { s.KeepNotVar = v })
	set("keep-true-syntax", func(v bool) { s.KeepConditionSyntaxOnTrue = v })
	if f.Changed("max-depth") {
		s.MaxDepth, _ = f.GetInt("max-depth")
	}
	extra, _ := f.GetStringArray("vars")
	cfg.Vars = append(cfg.Vars, extra...)
	return cfg.validate()
}

// prepare loads the config, applies the flags and collects the variables.
func prepare(cmd *cobra.Command) (*liquid.Engine, map[string]any, error) {
	cfg, err := loadConfig(rootConfig, cmd.Flags().Changed("config"))
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	if err := applyFlags(cmd, &cfg); err != nil {
		return nil, nil, err
	}

	loader := &vars.Loader{Logger: slog.Default()}
	if cfg.CacheDir != "" {
		loader.Cache = netcache.New(cfg.CacheDir)
	} else if dir, err := os.UserCacheDir(); err == nil {
		loader.Cache = netcache.New(filepath.Join(dir, "liquid"))
	}
	values, err := loader.LoadAll(cmd.Context(), cfg.Vars)
	if err != nil {
		return nil, nil, err
	}
	assignments, _ := cmd.Flags().GetStringArray("set")
	for _, a := range assignments {
		if err := vars.Set(values, a); err != nil {
			return nil, nil, err
		}
	}
	slog.Debug("variables loaded", "sources", len(cfg.Vars), "count", len(values))

	return liquid.New(slog.Default(), cfg.Settings), values, nil
}

var renderCmd = cobra.Command{
	Use:   "render [files...]",
	Short: "Render documents to --out, or stdin to stdout",
	RunE: func(cmd *cobra.Command, args []string) error {
		outDir, _ := cmd.Flags().GetString("out")
		withMap, _ := cmd.Flags().GetBool("sourcemap")
		if withMap && outDir == "" {
			return fmt.Errorf("--sourcemap needs --out")
		}
		if len(args) > 1 && outDir == "" {
			return fmt.Errorf("rendering several files needs --out")
		}

		engine, values, err := prepare(cmd)
		if err != nil {
			return err
		}

		if len(args) == 0 {
			in, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("reading stdin: %w", err)
			}
			out, err := engine.WithPath("<stdin>").Document(string(in), values, nil)
			if err != nil {
				return err
			}
			_, err = io.WriteString(cmd.OutOrStdout(), out)
			return err
		}

		for _, file := range args {
			if err := renderFile(cmd.Context(), cmd.OutOrStdout(), engine, values, file, outDir, withMap); err != nil {
				return err
			}
		}
		return nil
	},
}

func renderFile(ctx context.Context, stdout io.Writer, engine *liquid.Engine, values map[string]any, file, outDir string, withMap bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	in, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	var sm *sourcemap.SourceMap
	if withMap {
		sm = sourcemap.New(string(in))
	}
	out, err := engine.WithPath(file).Document(string(in), values, sm)
	if err != nil {
		return err
	}

	if outDir == "" {
		_, err = io.WriteString(stdout, out)
		return err
	}
	dst := filepath.Join(outDir, filepath.Base(file))
	if err := writeFile(dst, []byte(out)); err != nil {
		return fmt.Errorf("writing %s: %w", dst, err)
	}
	slog.Debug("rendered", "file", file, "out", dst)
	if sm == nil {
		return nil
	}
	data, err := json.MarshalIndent(sm, "", "  ")
	if err != nil {
		return err
	}
	return writeFile(dst+".map.json", data)
}

var sourcemapCmd = cobra.Command{
	Use:   "sourcemap <file>",
	Short: "Print the source map of a rendered document as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, values, err := prepare(cmd)
		if err != nil {
			return err
		}
		in, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		sm := sourcemap.New(string(in))
		if _, err := engine.WithPath(args[0]).Document(string(in), values, sm); err != nil {
			return err
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(sm)
	},
}

func init() {
	renderCmd.Flags().StringP("out", "o", "", "Directory to write rendered files to")
	renderCmd.Flags().Bool("sourcemap", false, "Write <name>.map.json next to every rendered file")
}

// writeFile writes through a temporary file so readers never see a partial
// result.
func writeFile(dst string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	tmp := dst + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, dst)
}
