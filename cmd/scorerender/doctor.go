package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"runtime"

	scorerender "github.com/alnah/go-scorerender"
	"github.com/alnah/go-scorerender/internal/hints"
)

// doctorResult holds all diagnostic information.
type doctorResult struct {
	Status   string              `json:"status"` // "ready", "warnings", "errors"
	Report   *scorerender.Report `json:"report"`
	Env      envInfo             `json:"environment"`
	Warnings []string            `json:"warnings,omitempty"`
	Errors   []string            `json:"errors,omitempty"`
}

// envInfo holds environment detection results.
type envInfo struct {
	OS        string `json:"os"`
	Arch      string `json:"arch"`
	Container bool   `json:"container"`
	CI        bool   `json:"ci"`
}

// runDoctorCmd executes the doctor command and returns an exit code.
// Exit codes: 0 = OK (including warnings), 4 = converter or directories unusable.
func runDoctorCmd(ctx context.Context, args []string, env *Environment) int {
	fs := newFlagSet("doctor", env.Stderr, printDoctorUsage)
	var (
		common     commonFlags
		engine     engineFlags
		jsonOutput bool
	)
	addCommonFlags(fs, &common)
	addEngineFlags(fs, &engine)
	fs.BoolVar(&jsonOutput, "json", false, "JSON output")
	if err := fs.Parse(args); err != nil {
		return ExitUsage
	}

	cfg, err := loadSettings(&common, &engine, nil, env)
	if err != nil {
		fmt.Fprintf(env.Stderr, "error: %v%s\n", err, hintFor(err))
		return exitCodeFor(err)
	}

	var result *doctorResult
	err = withApp(cfg, env, func(a app) error {
		result = runDoctor(ctx, a.Renderer, env)
		return nil
	})
	if err != nil {
		fmt.Fprintf(env.Stderr, "error: %v%s\n", err, hintFor(err))
		return exitCodeFor(err)
	}

	if jsonOutput {
		enc := json.NewEncoder(env.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(result)
	} else {
		printDoctorResult(env.Stdout, result)
	}

	if result.Status == "errors" {
		return ExitRender
	}
	return ExitSuccess
}

// runDoctor performs all diagnostic checks.
func runDoctor(ctx context.Context, r *scorerender.Renderer, env *Environment) *doctorResult {
	rep := r.Check(ctx)
	result := &doctorResult{
		Status: "ready",
		Report: rep,
		Env: envInfo{
			OS:        runtime.GOOS,
			Arch:      runtime.GOARCH,
			Container: hints.IsInContainer(),
			CI:        isCI(env.Getenv),
		},
	}

	if !rep.Converter.OK() {
		result.Errors = append(result.Errors, "ImageMagick: "+rep.Converter.Error)
	}
	if !rep.CacheDir.OK() {
		result.Errors = append(result.Errors, "cache directory: "+rep.CacheDir.Error)
	}
	if !rep.TempDir.OK() {
		result.Errors = append(result.Errors, "temp directory: "+rep.TempDir.Error)
	}
	for _, s := range rep.Renderers {
		if !s.OK() {
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s disabled: %s", s.Name, s.Error))
		}
	}
	if len(rep.Usable()) == 0 {
		result.Errors = append(result.Errors, "no notation can be rendered")
	}

	if len(result.Errors) > 0 {
		result.Status = "errors"
	} else if len(result.Warnings) > 0 {
		result.Status = "warnings"
	}
	return result
}

func isCI(getenv func(string) string) bool {
	for _, v := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "CIRCLECI"} {
		if getenv(v) != "" {
			return true
		}
	}
	return false
}

// printDoctorResult outputs human-readable diagnostic results.
func printDoctorResult(w io.Writer, r *doctorResult) {
	fmt.Fprintln(w, "scorerender doctor")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "ImageMagick")
	printProgram(w, r.Report.Converter)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Renderers")
	for _, s := range r.Report.Renderers {
		printProgram(w, s)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Directories")
	printDir(w, "Cache", r.Report.CacheDir)
	printDir(w, "Temp", r.Report.TempDir)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Environment")
	fmt.Fprintf(w, "  [OK] Platform: %s/%s\n", r.Env.OS, r.Env.Arch)
	if r.Env.Container {
		fmt.Fprintln(w, "  [OK] Container: detected")
	}
	if r.Env.CI {
		fmt.Fprintln(w, "  [OK] CI: detected")
	}
	fmt.Fprintln(w)

	if len(r.Warnings) > 0 {
		fmt.Fprintln(w, "Warnings:")
		for _, warn := range r.Warnings {
			fmt.Fprintf(w, "  [WARN] %s\n", warn)
		}
		fmt.Fprintln(w)
	}
	if len(r.Errors) > 0 {
		fmt.Fprintln(w, "Errors:")
		for _, err := range r.Errors {
			fmt.Fprintf(w, "  [ERROR] %s\n", err)
		}
		fmt.Fprintln(w)
	}

	switch r.Status {
	case "ready":
		fmt.Fprintln(w, "Status: Ready to render")
	case "warnings":
		fmt.Fprintln(w, "Status: Ready with warnings")
	case "errors":
		fmt.Fprintln(w, "Status: Not ready (see errors above)")
	}
}

func printProgram(w io.Writer, s scorerender.ProgramStatus) {
	switch {
	case s.Remote:
		fmt.Fprintf(w, "  [OK] %s: remote %s\n", s.Name, s.Path)
	case s.OK():
		fmt.Fprintf(w, "  [OK] %s: %s (%s)\n", s.Name, s.Path, s.Version)
	case s.Required:
		fmt.Fprintf(w, "  [ERROR] %s: %s\n", s.Name, s.Error)
	default:
		fmt.Fprintf(w, "  [WARN] %s: %s\n", s.Name, s.Error)
	}
}

func printDir(w io.Writer, label string, s scorerender.DirStatus) {
	if s.OK() {
		fmt.Fprintf(w, "  [OK] %s: %s\n", label, s.Path)
		return
	}
	fmt.Fprintf(w, "  [ERROR] %s: %s\n", label, s.Error)
}
