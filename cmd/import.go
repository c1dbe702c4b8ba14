package main

import (
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/access-cli/internal/loader"
	"github.com/sells-group/access-cli/internal/store"
)

var (
	importKind    string
	importIDField string
	importName    string
	importSheet   string
)

var importCmd = &cobra.Command{
	Use:   "import {locations|opportunities|costs} FILE",
	Short: "Load locations, opportunities, or cost edges into the store",
	Long: `Loads input data into the configured store. The format is inferred from
the file extension: .csv, .xlsx (opportunities only), or .shp (locations only,
polygon features collapse to their centroid).`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.Migrate(ctx); err != nil {
			return err
		}

		what, path := args[0], args[1]
		ext := strings.ToLower(filepath.Ext(path))
		log := zap.L().With(zap.String("file", path))

		switch what {
		case "locations":
			var locs []store.Location
			switch ext {
			case ".csv":
				f, err := os.Open(path)
				if err != nil {
					return eris.Wrapf(err, "open %s", path)
				}
				defer f.Close() //nolint:errcheck
				locs, err = loader.LocationsFromCSV(ctx, f)
				if err != nil {
					return err
				}
			case ".shp":
				kind, err := parseLocationKind(importKind)
				if err != nil {
					return err
				}
				locs, err = loader.LocationsFromShapefile(path, loader.ShapefileOptions{
					IDField:   importIDField,
					NameField: importName,
					Kind:      kind,
				})
				if err != nil {
					return err
				}
			default:
				return eris.Errorf("unsupported location format %q (want .csv or .shp)", ext)
			}
			if err := st.UpsertLocations(ctx, locs); err != nil {
				return err
			}
			log.Info("locations imported", zap.Int("count", len(locs)))

		case "opportunities":
			var opps map[string]float64
			switch ext {
			case ".csv":
				f, err := os.Open(path)
				if err != nil {
					return eris.Wrapf(err, "open %s", path)
				}
				defer f.Close() //nolint:errcheck
				opps, err = loader.OpportunitiesFromCSV(ctx, f)
				if err != nil {
					return err
				}
			case ".xlsx":
				var err error
				opps, err = loader.OpportunitiesFromXLSX(path, loader.XLSXOptions{SheetName: importSheet})
				if err != nil {
					return err
				}
			default:
				return eris.Errorf("unsupported opportunity format %q (want .csv or .xlsx)", ext)
			}
			if err := st.UpsertOpportunities(ctx, opps); err != nil {
				return err
			}
			log.Info("opportunities imported", zap.Int("count", len(opps)))

		case "costs":
			if ext != ".csv" {
				return eris.Errorf("unsupported cost format %q (want .csv)", ext)
			}
			f, err := os.Open(path)
			if err != nil {
				return eris.Wrapf(err, "open %s", path)
			}
			defer f.Close() //nolint:errcheck
			edges, err := loader.CostEdgesFromCSV(ctx, f)
			if err != nil {
				return err
			}
			if err := st.InsertCostEdges(ctx, edges); err != nil {
				return err
			}
			log.Info("cost edges imported", zap.Int("count", len(edges)))

		default:
			return eris.Errorf("unknown import target %q (want locations, opportunities, or costs)", what)
		}

		return nil
	},
}

func parseLocationKind(s string) (store.LocationKind, error) {
	switch store.LocationKind(s) {
	case store.KindOrigin:
		return store.KindOrigin, nil
	case store.KindDestination:
		return store.KindDestination, nil
	}
	return "", eris.Errorf("--kind must be origin or destination (got %q)", s)
}

func init() {
	importCmd.Flags().StringVar(&importKind, "kind", "origin", "location kind for shapefile imports: origin or destination")
	importCmd.Flags().StringVar(&importIDField, "id-field", "GEOID", "shapefile attribute holding the location id")
	importCmd.Flags().StringVar(&importName, "name-field", "", "shapefile attribute holding a display name")
	importCmd.Flags().StringVar(&importSheet, "sheet", "", "XLSX sheet name (default: first sheet)")
	rootCmd.AddCommand(importCmd)
}
