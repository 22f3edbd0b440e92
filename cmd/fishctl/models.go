package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/lukasbauer/fishaudio/internal/eventlog"
	"github.com/lukasbauer/fishaudio/model"
	"github.com/spf13/cobra"
)

func newModelsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Manage voice models",
	}

	cmd.AddCommand(
		newModelsListCmd(c),
		newModelsGetCmd(c),
		newModelsCreateCmd(c),
		newModelsUpdateCmd(c),
		newModelsDeleteCmd(c),
	)
	return cmd
}

func newModelsListCmd(c *cli) *cobra.Command {
	var params model.ListParams

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List voice models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := c.app.Client().Models.List(cmd.Context(), params)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), page)
		},
	}

	cmd.Flags().IntVar(&params.PageSize, "page-size", 10, "results per page")
	cmd.Flags().IntVar(&params.PageNumber, "page", 1, "page number")
	cmd.Flags().StringVar(&params.Title, "title", "", "filter by title")
	cmd.Flags().StringSliceVar(&params.Tags, "tag", nil, "filter by tag")
	cmd.Flags().BoolVar(&params.Self, "self", false, "only models owned by the caller")
	cmd.Flags().StringVar(&params.AuthorID, "author", "", "filter by author id")
	cmd.Flags().StringSliceVar(&params.Languages, "language", nil, "filter by language")
	cmd.Flags().StringVar(&params.SortBy, "sort", "", "score|task_count|created_at")
	return cmd
}

func newModelsGetCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one voice model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := c.app.Client().Models.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), m)
		},
	}
}

func newModelsCreateCmd(c *cli) *cobra.Command {
	var (
		params     model.CreateParams
		visibility string
		voices     []string
		cover      string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a voice model from samples",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			params.Visibility = model.Visibility(visibility)

			for _, path := range voices {
				f, err := openFile(path)
				if err != nil {
					return err
				}
				defer f.close()
				params.Voices = append(params.Voices, f.File)
			}
			if cover != "" {
				f, err := openFile(cover)
				if err != nil {
					return err
				}
				defer f.close()
				params.CoverImage = &f.File
			}

			data := map[string]any{"title": params.Title, "voices": len(params.Voices)}

			m, err := c.app.Client().Models.Create(cmd.Context(), params)
			if err != nil {
				return c.fail(err, data)
			}

			data["model_id"] = m.ID
			c.record(eventlog.EventModelCreated, data)
			return printJSON(cmd.OutOrStdout(), m)
		},
	}

	cmd.Flags().StringVar(&params.Title, "title", "", "model title")
	cmd.Flags().StringVar(&params.Description, "description", "", "model description")
	cmd.Flags().StringVar(&visibility, "visibility", "", "public|unlist|private")
	cmd.Flags().StringSliceVar(&voices, "voice", nil, "voice sample file, repeatable")
	cmd.Flags().StringSliceVar(&params.Texts, "text", nil, "transcript of each voice sample")
	cmd.Flags().StringSliceVar(&params.Tags, "tag", nil, "tag, repeatable")
	cmd.Flags().StringVar(&cover, "cover", "", "cover image file")
	cmd.Flags().BoolVar(&params.EnhanceAudioQuality, "enhance", false, "enhance sample audio quality")
	return cmd
}

func newModelsUpdateCmd(c *cli) *cobra.Command {
	var (
		title       string
		description string
		visibility  string
		tags        []string
		cover       string
	)

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change a voice model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var params model.UpdateParams
			flags := cmd.Flags()

			if flags.Changed("title") {
				params.Title = &title
			}
			if flags.Changed("description") {
				params.Description = &description
			}
			if flags.Changed("visibility") {
				v := model.Visibility(visibility)
				params.Visibility = &v
			}
			params.Tags = tags
			if cover != "" {
				f, err := openFile(cover)
				if err != nil {
					return err
				}
				defer f.close()
				params.CoverImage = &f.File
			}

			data := map[string]any{"model_id": args[0]}
			if err := c.app.Client().Models.Update(cmd.Context(), args[0], params); err != nil {
				return c.fail(err, data)
			}

			c.record(eventlog.EventModelUpdated, data)
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "updated %s\n", args[0])
			return err
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&description, "description", "", "new description")
	cmd.Flags().StringVar(&visibility, "visibility", "", "public|unlist|private")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "replace tags")
	cmd.Flags().StringVar(&cover, "cover", "", "new cover image file")
	return cmd
}

func newModelsDeleteCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a voice model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data := map[string]any{"model_id": args[0]}
			if err := c.app.Client().Models.Delete(cmd.Context(), args[0]); err != nil {
				return c.fail(err, data)
			}

			c.record(eventlog.EventModelDeleted, data)
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return err
		},
	}
}

type openedFile struct {
	model.File
	close func() error
}

func openFile(path string) (*openedFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return &openedFile{
		File:  model.File{Name: filepath.Base(path), Reader: f},
		close: f.Close,
	}, nil
}
