package main

import (
	"fmt"
	"os"

	"frameforge/internal/ff"

	"github.com/spf13/cobra"
)

// shortID abbreviates ids for listings; any unique prefix resolves back.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage projects",
}

var projectAddCmd = &cobra.Command{
	Use:   "add NAME",
	Short: "Create a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		description, _ := cmd.Flags().GetString("description")

		a, err := newApp("AddProject")
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := a.AddProject(args[0], description)
		if err != nil {
			return a.Fail(err)
		}
		fmt.Printf("Created project %s (%s)\n", p.Name, p.ID)
		return nil
	},
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ListProjects")
		if err != nil {
			return err
		}
		defer a.Close()

		projects := a.ListProjects()
		if len(projects) == 0 {
			fmt.Println("No projects.")
			return nil
		}
		for _, p := range projects {
			frames, _ := a.ListFrames(p.ID)
			fmt.Printf("%s  %-24s  %3d frame(s)  updated %s\n",
				shortID(p.ID),
				p.Name,
				len(frames),
				p.UpdatedAt.Local().Format("2006-01-02 15:04"),
			)
		}
		return nil
	},
}

var projectRenameCmd = &cobra.Command{
	Use:   "rename PROJECT NAME",
	Short: "Rename a project or change its description",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("UpdateProject")
		if err != nil {
			return err
		}
		defer a.Close()

		patch := ff.ProjectPatch{Name: ff.Ptr(args[1])}
		if cmd.Flags().Changed("description") {
			description, _ := cmd.Flags().GetString("description")
			patch.Description = &description
		}
		p, err := a.UpdateProject(args[0], patch)
		if err != nil {
			return a.Fail(err)
		}
		fmt.Printf("Project %s is now %q\n", shortID(p.ID), p.Name)
		return nil
	},
}

var projectDeleteCmd = &cobra.Command{
	Use:   "delete PROJECT",
	Short: "Delete a project with its frames and images",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("DeleteProject")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.DeleteProject(args[0]); err != nil {
			return a.Fail(err)
		}
		fmt.Println("Project deleted.")
		return nil
	},
}

var projectExportCmd = &cobra.Command{
	Use:   "export PROJECT [FILE]",
	Short: "Write a project bundle as JSON",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		withImages, _ := cmd.Flags().GetBool("images")

		a, err := newApp("ExportProject")
		if err != nil {
			return err
		}
		defer a.Close()

		out := os.Stdout
		if len(args) == 2 {
			f, err := os.Create(args[1])
			if err != nil {
				return a.Fail(fmt.Errorf("creating bundle file: %w", err))
			}
			defer f.Close()
			out = f
		}
		if err := a.ExportProject(args[0], withImages, out); err != nil {
			return a.Fail(err)
		}
		return nil
	},
}

var projectImportCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Restore a project bundle",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ImportProject")
		if err != nil {
			return err
		}
		defer a.Close()

		f, err := os.Open(args[0])
		if err != nil {
			return a.Fail(fmt.Errorf("opening bundle: %w", err))
		}
		defer f.Close()

		res, err := a.ImportProject(f)
		if err != nil {
			return a.Fail(err)
		}
		created := "existing"
		if res.ProjectCreated {
			created = "new"
		}
		fmt.Printf("Imported into %s project: %d frame(s), %d image(s)\n", created, res.FramesAdded, res.ImagesAdded)
		return nil
	},
}

func init() {
	projectCmd.AddCommand(projectAddCmd)
	projectAddCmd.Flags().StringP("description", "d", "", "Project description")
	projectCmd.AddCommand(projectListCmd)
	projectCmd.AddCommand(projectRenameCmd)
	projectRenameCmd.Flags().StringP("description", "d", "", "New description")
	projectCmd.AddCommand(projectDeleteCmd)
	projectCmd.AddCommand(projectExportCmd)
	projectExportCmd.Flags().Bool("images", false, "Embed stored images in the bundle")
	projectCmd.AddCommand(projectImportCmd)
}
