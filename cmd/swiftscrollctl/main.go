// Command swiftscrollctl is a diagnostic tool: it loads and validates
// settings.json and prints the effective parameters the Smooth Scroll
// Engine would resolve for a given process name, without needing the
// Windows hook (or even a Windows host) running. Useful for checking a
// hand-edited settings file before restarting the real service.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/knchmpgn/swiftscroll/internal/core"
)

func main() {
	var (
		dir     = flag.String("dir", ".", "directory containing settings.json")
		process = flag.String("process", "", "process name to resolve effective parameters for")
		asJSON  = flag.Bool("json", false, "print the resolution as JSON")
	)
	flag.Parse()

	settings, err := core.LoadSettings(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "swiftscrollctl: %v (falling back to compiled defaults)\n", err)
	}

	if err := settings.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "swiftscrollctl: settings invalid: %v\n", err)
		os.Exit(1)
	}

	if *process == "" {
		printSummary(settings)
		return
	}

	res := settings.Resolve(*process)
	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			fmt.Fprintf(os.Stderr, "swiftscrollctl: encoding result: %v\n", err)
			os.Exit(1)
		}
		return
	}

	printResolution(*process, res)
}

func printSummary(s *core.AppSettings) {
	fmt.Printf("enabled: %v\n", s.Enabled)
	fmt.Printf("shift_key_horizontal: %v\n", s.ShiftKeyHorizontal)
	fmt.Printf("profiles:\n")
	for _, p := range s.Profiles {
		fmt.Printf("  - %s (step_size_px=%d animation_time_ms=%d)\n", p.Name, p.StepSizePx, p.AnimationTimeMs)
	}
	if len(s.ExcludedApps) > 0 {
		fmt.Printf("excluded_apps: %v\n", s.ExcludedApps)
	}
}

func printResolution(process string, res core.Resolution) {
	if res.Excluded {
		fmt.Printf("%s: excluded (pass-through, no synthetic scroll)\n", process)
		return
	}
	p := res.Effective
	fmt.Printf("%s: profile_key=%s\n", process, res.ProfileKey)
	fmt.Printf("  step_size_px:            %d\n", p.StepSizePx)
	fmt.Printf("  animation_time_ms:       %d\n", p.AnimationTimeMs)
	fmt.Printf("  acceleration_delta_ms:   %d\n", p.AccelerationDeltaMs)
	fmt.Printf("  acceleration_max:        %d\n", p.AccelerationMax)
	fmt.Printf("  tail_to_head_ratio:      %d\n", p.TailToHeadRatio)
	fmt.Printf("  animation_easing:        %v\n", p.AnimationEasing)
	fmt.Printf("  horizontal_smoothness:   %v\n", p.HorizontalSmoothness)
	fmt.Printf("  reverse_wheel_direction: %v\n", p.ReverseWheelDirection)
}
