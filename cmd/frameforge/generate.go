package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate images and frames with the configured providers",
}

var generateImageCmd = &cobra.Command{
	Use:   "image [FRAME]",
	Short: "Generate the image of a frame (default: the selected one)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		model, _ := cmd.Flags().GetString("model")
		ratio, _ := cmd.Flags().GetString("ratio")

		a, err := newApp("GenerateImage")
		if err != nil {
			return err
		}
		defer a.Close()

		f, err := a.GenerateImage(cmd.Context(), optionalArg(args), model, ratio)
		if err != nil {
			return a.Fail(fmt.Errorf("generating image: %w", err))
		}
		if f == nil {
			fmt.Println("Frame was deleted during generation; image discarded.")
			return nil
		}
		fmt.Printf("Generated image for frame %d (%d credit(s))\n", f.Order+1, *f.CreditCost)
		return nil
	},
}

var generateProjectCmd = &cobra.Command{
	Use:   "project PROJECT",
	Short: "Generate images for every frame with a prompt",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		model, _ := cmd.Flags().GetString("model")
		ratio, _ := cmd.Flags().GetString("ratio")

		a, err := newApp("GenerateProjectImages")
		if err != nil {
			return err
		}
		defer a.Close()

		results, err := a.GenerateProjectImages(cmd.Context(), args[0], model, ratio)
		if err != nil {
			return a.Fail(err)
		}

		var failed, credits int
		for _, r := range results {
			switch {
			case r.Err != nil:
				failed++
				fmt.Printf("FAIL %s  %v\n", shortID(r.FrameID), r.Err)
			case r.Frame == nil:
				fmt.Printf("SKIP %s\n", shortID(r.FrameID))
			default:
				if r.Frame.CreditCost != nil {
					credits += *r.Frame.CreditCost
				}
				fmt.Printf("OK   %s\n", shortID(r.FrameID))
			}
		}
		fmt.Printf("Generated %d of %d image(s), %d credit(s)\n", len(results)-failed, len(results), credits)
		if failed > 0 {
			return a.Fail(fmt.Errorf("%d generation(s) failed", failed))
		}
		return nil
	},
}

var generateNextCmd = &cobra.Command{
	Use:   "next [FRAME]",
	Short: "Write the frame that follows FRAME with the text model",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("GenerateNextFrame")
		if err != nil {
			return err
		}
		defer a.Close()

		f, err := a.GenerateNextFrame(cmd.Context(), optionalArg(args))
		if err != nil {
			return a.Fail(fmt.Errorf("continuing story: %w", err))
		}
		if f == nil {
			fmt.Println("Frame was deleted during generation; nothing added.")
			return nil
		}
		printFrame(*f)
		return nil
	},
}

// image command
var imageCmd = &cobra.Command{
	Use:   "image",
	Short: "Manage frame images",
}

var imageAttachCmd = &cobra.Command{
	Use:   "attach FRAME PATH",
	Short: "Attach an image file to a frame",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("AttachImage")
		if err != nil {
			return err
		}
		defer a.Close()

		f, err := a.AttachImageFile(args[0], args[1])
		if err != nil {
			return a.Fail(err)
		}
		if f == nil {
			fmt.Println("Frame was deleted; image discarded.")
			return nil
		}
		fmt.Printf("Attached %s to frame %d\n", args[1], f.Order+1)
		return nil
	},
}

var imageExportCmd = &cobra.Command{
	Use:   "export FRAME PATH",
	Short: "Write a frame's image to PATH",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ExportImage")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.ExportImageFile(args[0], args[1]); err != nil {
			return a.Fail(err)
		}
		fmt.Printf("Wrote %s\n", args[1])
		return nil
	},
}

var imageRemoveCmd = &cobra.Command{
	Use:   "remove FRAME",
	Short: "Remove a frame's image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("RemoveImage")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.RemoveImage(args[0]); err != nil {
			return a.Fail(err)
		}
		fmt.Println("Image removed.")
		return nil
	},
}

var imagePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete stored images whose frame no longer exists",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("PruneImages")
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.PruneImages()
		if err != nil {
			return a.Fail(err)
		}
		fmt.Printf("Pruned %d image(s)\n", n)
		return nil
	},
}

func init() {
	generateCmd.AddCommand(generateImageCmd)
	generateCmd.AddCommand(generateProjectCmd)
	generateCmd.AddCommand(generateNextCmd)
	for _, c := range []*cobra.Command{generateImageCmd, generateProjectCmd} {
		c.Flags().StringP("model", "m", "", "Image model (default from config)")
		c.Flags().StringP("ratio", "r", "", "Aspect ratio (default from config)")
	}

	imageCmd.AddCommand(imageAttachCmd)
	imageCmd.AddCommand(imageExportCmd)
	imageCmd.AddCommand(imageRemoveCmd)
	imageCmd.AddCommand(imagePruneCmd)
}
