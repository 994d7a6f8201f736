package main

import (
	"fmt"
	"strconv"

	"frameforge/internal/ff"
	"frameforge/internal/gateway"
	"frameforge/internal/prompt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func addFrameFlags(fs *pflag.FlagSet) {
	fs.StringP("prompt", "p", "", "Scene description")
	fs.String("dialogue", "", "Spoken line")
	fs.String("speaker", "", "Who speaks the line")
	fs.String("camera", "", "Camera movement (see `frameforge options`)")
	fs.Float64("duration", 0, "Shot length in seconds")
	fs.String("style", "", "Visual style")
	fs.String("mood", "", "Lighting and atmosphere")
}

// framePatch builds a patch from the flags the user actually set.
func framePatch(cmd *cobra.Command) (ff.FramePatch, error) {
	fs := cmd.Flags()
	var patch ff.FramePatch
	str := func(name string) *string {
		if !fs.Changed(name) {
			return nil
		}
		v, _ := fs.GetString(name)
		return &v
	}
	patch.Prompt = str("prompt")
	patch.Dialogue = str("dialogue")
	patch.Speaker = str("speaker")

	if v := str("camera"); v != nil {
		c, err := ff.ParseCameraMovement(*v)
		if err != nil {
			return patch, err
		}
		patch.CameraMovement = &c
	}
	if v := str("style"); v != nil {
		s, err := ff.ParseStyle(*v)
		if err != nil {
			return patch, err
		}
		patch.Style = &s
	}
	if v := str("mood"); v != nil {
		m, err := ff.ParseMood(*v)
		if err != nil {
			return patch, err
		}
		patch.Mood = &m
	}
	if fs.Changed("duration") {
		d, _ := fs.GetFloat64("duration")
		patch.Duration = &d
	}
	return patch, nil
}

func printFrame(f ff.Frame) {
	fmt.Printf("Frame %d (%s)\n", f.Order+1, f.ID)
	fmt.Printf("  Prompt:   %s\n", f.Prompt)
	if f.Dialogue != "" {
		fmt.Printf("  Dialogue: %s: %q\n", f.Speaker, f.Dialogue)
	}
	fmt.Printf("  Camera:   %s\n", f.CameraMovement.Label())
	fmt.Printf("  Duration: %ss\n", strconv.FormatFloat(f.Duration, 'f', -1, 64))
	fmt.Printf("  Style:    %s\n", f.Style)
	fmt.Printf("  Mood:     %s\n", f.Mood)
	if f.ImageKey != "" {
		cost := "attached"
		if f.CreditCost != nil {
			cost = fmt.Sprintf("%d credit(s)", *f.CreditCost)
		}
		fmt.Printf("  Image:    %s\n", cost)
	}
}

var frameCmd = &cobra.Command{
	Use:   "frame",
	Short: "Manage frames",
}

var frameAddCmd = &cobra.Command{
	Use:   "add PROJECT",
	Short: "Append a frame to a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		patch, err := framePatch(cmd)
		if err != nil {
			return err
		}

		a, err := newApp("AddFrame")
		if err != nil {
			return err
		}
		defer a.Close()

		f, err := a.AddFrame(args[0], patch)
		if err != nil {
			return a.Fail(err)
		}
		fmt.Printf("Added frame %d (%s)\n", f.Order+1, f.ID)
		return nil
	},
}

var frameInsertCmd = &cobra.Command{
	Use:   "insert AFTER",
	Short: "Insert a frame after another",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		patch, err := framePatch(cmd)
		if err != nil {
			return err
		}

		a, err := newApp("InsertFrame")
		if err != nil {
			return err
		}
		defer a.Close()

		f, err := a.InsertFrame(args[0], patch)
		if err != nil {
			return a.Fail(err)
		}
		fmt.Printf("Inserted frame %d (%s)\n", f.Order+1, f.ID)
		return nil
	},
}

var frameListCmd = &cobra.Command{
	Use:   "list PROJECT",
	Short: "List a project's frames",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ListFrames")
		if err != nil {
			return err
		}
		defer a.Close()

		frames, err := a.ListFrames(args[0])
		if err != nil {
			return a.Fail(err)
		}
		if len(frames) == 0 {
			fmt.Println("No frames.")
			return nil
		}
		selected, _ := a.Service().Frames().Selected()
		for _, f := range frames {
			marker := " "
			if f.ID == selected {
				marker = "*"
			}
			image := " "
			if f.ImageKey != "" {
				image = "I"
			}
			fmt.Printf("%s%3d  %s  %s  %s\n", marker, f.Order+1, shortID(f.ID), image, f.Prompt)
		}
		return nil
	},
}

var frameShowCmd = &cobra.Command{
	Use:   "show [FRAME]",
	Short: "Show a frame (default: the selected one)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ShowFrame")
		if err != nil {
			return err
		}
		defer a.Close()

		f, err := a.ResolveFrame(optionalArg(args))
		if err != nil {
			return a.Fail(err)
		}
		printFrame(f)
		return nil
	},
}

var frameUpdateCmd = &cobra.Command{
	Use:   "update [FRAME]",
	Short: "Edit a frame (default: the selected one)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		patch, err := framePatch(cmd)
		if err != nil {
			return err
		}
		if patch.IsEmpty() {
			return fmt.Errorf("nothing to update")
		}

		a, err := newApp("UpdateFrame")
		if err != nil {
			return err
		}
		defer a.Close()

		f, err := a.UpdateFrame(optionalArg(args), patch)
		if err != nil {
			return a.Fail(err)
		}
		printFrame(f)
		return nil
	},
}

var frameDeleteCmd = &cobra.Command{
	Use:   "delete FRAME",
	Short: "Delete a frame and its image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("DeleteFrame")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.DeleteFrame(args[0]); err != nil {
			return a.Fail(err)
		}
		fmt.Println("Frame deleted.")
		return nil
	},
}

var frameReorderCmd = &cobra.Command{
	Use:   "reorder PROJECT FRAME...",
	Short: "Set the order of all frames of a project",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ReorderFrames")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.ReorderFrames(args[0], args[1:]); err != nil {
			return a.Fail(err)
		}
		fmt.Printf("Reordered %d frame(s)\n", len(args)-1)
		return nil
	},
}

var frameSelectCmd = &cobra.Command{
	Use:   "select [FRAME]",
	Short: "Select a frame for later commands (no argument clears)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("SelectFrame")
		if err != nil {
			return err
		}
		defer a.Close()

		f, err := a.SelectFrame(optionalArg(args))
		if err != nil {
			return a.Fail(err)
		}
		if f.ID == "" {
			fmt.Println("Selection cleared.")
			return nil
		}
		fmt.Printf("Selected frame %d (%s)\n", f.Order+1, f.ID)
		return nil
	},
}

func optionalArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

// prompt command
var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Print the prompts sent to image models",
}

var promptNarrativeCmd = &cobra.Command{
	Use:   "narrative [FRAME]",
	Short: "Print one frame's narrative prompt",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("NarrativePrompt")
		if err != nil {
			return err
		}
		defer a.Close()

		text, err := a.NarrativePrompt(optionalArg(args))
		if err != nil {
			return a.Fail(err)
		}
		fmt.Println(text)
		return nil
	},
}

var promptGridCmd = &cobra.Command{
	Use:   "grid PROJECT",
	Short: "Print a grid prompt for a project's frames",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		size, _ := cmd.Flags().GetInt("size")

		a, err := newApp("GridPrompt")
		if err != nil {
			return err
		}
		defer a.Close()

		text, err := a.GridPrompt(args[0], size)
		if err != nil {
			return a.Fail(err)
		}
		fmt.Println(text)
		return nil
	},
}

var promptTableCmd = &cobra.Command{
	Use:   "table PROJECT",
	Short: "Print the narrative prompt of every frame",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("PromptTable")
		if err != nil {
			return err
		}
		defer a.Close()

		rows, err := a.PromptTable(args[0])
		if err != nil {
			return a.Fail(err)
		}
		for _, r := range rows {
			fmt.Printf("%3d  %s  %s\n", r.Index, shortID(r.FrameID), r.Narrative)
		}
		return nil
	},
}

var optionsCmd = &cobra.Command{
	Use:   "options",
	Short: "List accepted camera movements, styles, moods, models and ratios",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("Camera movements:")
		for _, c := range ff.CameraMovements {
			fmt.Printf("  %s\n", c.Label())
		}
		fmt.Println("Styles:")
		for _, s := range ff.Styles {
			fmt.Printf("  %s\n", s)
		}
		fmt.Println("Moods:")
		for _, m := range ff.Moods {
			fmt.Printf("  %s\n", m)
		}
		fmt.Println("Models:")
		for _, m := range gateway.Models() {
			fmt.Printf("  %-28s %d credit(s)\n", m, gateway.CreditCost(m))
		}
		fmt.Println("Aspect ratios:")
		for _, r := range gateway.AspectRatios() {
			fmt.Printf("  %s\n", r)
		}
	},
}

func init() {
	frameCmd.AddCommand(frameAddCmd)
	addFrameFlags(frameAddCmd.Flags())
	frameCmd.AddCommand(frameInsertCmd)
	addFrameFlags(frameInsertCmd.Flags())
	frameCmd.AddCommand(frameListCmd)
	frameCmd.AddCommand(frameShowCmd)
	frameCmd.AddCommand(frameUpdateCmd)
	addFrameFlags(frameUpdateCmd.Flags())
	frameCmd.AddCommand(frameDeleteCmd)
	frameCmd.AddCommand(frameReorderCmd)
	frameCmd.AddCommand(frameSelectCmd)

	promptCmd.AddCommand(promptNarrativeCmd)
	promptCmd.AddCommand(promptGridCmd)
	promptGridCmd.Flags().IntP("size", "s", prompt.Grid3x3, "Panels in the grid (9 or 25)")
	promptCmd.AddCommand(promptTableCmd)
}
