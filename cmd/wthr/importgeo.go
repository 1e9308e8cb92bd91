package main

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/swelljoe/wthr.lol/internal/gazetteer"
)

func importGeoCommand(a *app) *cobra.Command {
	var (
		dataDir string
		file    string
		dataset string
		reset   bool
	)

	cmd := &cobra.Command{
		Use:   "import-geo",
		Short: "Load US Census gazetteer files into the local place index",
		Long: `Downloads the Census place and ZIP code gazetteers (or reads a local
file) and stores them in the SQLite database used when search.source is
"gazetteer". Archives already present in --data-dir are reused.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, logger, err := a.load()
			if err != nil {
				return err
			}
			if file != "" && dataset == "" {
				return errors.New("--dataset is required with --file")
			}
			ctx := cmd.Context()

			store, err := gazetteer.Open(settings.Gazetteer.Path, gazetteer.WithLogger(logger))
			if err != nil {
				return err
			}
			defer store.Close()

			var only gazetteer.Importer
			if dataset != "" {
				if only, err = store.Importer(gazetteer.Dataset{Name: dataset}); err != nil {
					return err
				}
			}

			if reset {
				if err := store.Clear(ctx); err != nil {
					return fmt.Errorf("clearing gazetteer: %w", err)
				}
			}

			if file != "" {
				n, err := importFile(cmd, file, only)
				if err != nil {
					return fmt.Errorf("importing %s: %w", file, err)
				}
				logger.Info("import finished", "dataset", dataset, "rows", n)
				return nil
			}

			if err := os.MkdirAll(dataDir, 0o755); err != nil {
				return fmt.Errorf("failed to create data dir: %w", err)
			}
			client := &http.Client{Timeout: 5 * time.Minute}

			for _, d := range gazetteer.Datasets {
				if dataset != "" && d.Name != dataset {
					continue
				}
				imp, err := store.Importer(d)
				if err != nil {
					return err
				}

				zipPath := filepath.Join(dataDir, d.Name+".zip")
				if _, err := os.Stat(zipPath); os.IsNotExist(err) {
					logger.Info("downloading", "dataset", d.Name, "url", d.URL)
					if err := gazetteer.Download(ctx, client, d.URL, zipPath); err != nil {
						return fmt.Errorf("failed to process %s: %w", d.Name, err)
					}
				} else {
					logger.Info("using existing archive", "path", zipPath)
				}

				n, err := gazetteer.ImportArchive(ctx, zipPath, imp)
				if err != nil {
					return fmt.Errorf("failed to process %s: %w", d.Name, err)
				}
				logger.Info("import finished", "dataset", d.Name, "rows", n)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dataDir, "data-dir", "data", "directory for downloaded archives")
	cmd.Flags().StringVar(&file, "file", "", "import a local .txt or .zip gazetteer file instead of downloading")
	cmd.Flags().StringVar(&dataset, "dataset", "", "dataset to import: places or zctas (default all)")
	cmd.Flags().BoolVar(&reset, "clear", false, "remove existing places first")
	return cmd
}

func importFile(cmd *cobra.Command, path string, imp gazetteer.Importer) (int, error) {
	if strings.HasSuffix(strings.ToLower(path), ".zip") {
		return gazetteer.ImportArchive(cmd.Context(), path, imp)
	}
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return imp(cmd.Context(), f)
}
