package main

import (
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/karuna-health/assess-portal/internal/report"
	"github.com/karuna-health/assess-portal/internal/store"
)

var (
	exportDistrict string
	exportOut      string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write report workbooks for stored assessments",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cat, err := loadCatalog()
		if err != nil {
			return err
		}
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		subs, err := st.ListSubmissions(ctx, store.SubmissionFilter{District: exportDistrict, Limit: 10000})
		if err != nil {
			return err
		}
		if len(subs) == 0 {
			zap.L().Info("no assessments to export")
			return nil
		}

		outDir := exportOut
		if outDir == "" {
			outDir = cfg.Report.OutputDir
		}
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return eris.Wrap(err, "create output dir")
		}

		g, ctx := errgroup.WithContext(ctx)
		g.SetLimit(4)

		for _, sub := range subs {
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				f, err := report.Workbook(cat, sub.Result, sub.Meta)
				if err != nil {
					if eris.Is(err, report.ErrEmptyReport) {
						zap.L().Warn("skipping empty assessment",
							zap.String("submission", sub.ID),
							zap.String("facility", sub.Meta.FacilityName))
						return nil
					}
					return err
				}
				path := filepath.Join(outDir, report.Filename(sub.Meta))
				if err := f.Save(path); err != nil {
					return eris.Wrapf(err, "save %s", path)
				}
				zap.L().Info("exported", zap.String("path", path))
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			return err
		}
		zap.L().Info("export complete", zap.Int("assessments", len(subs)), zap.String("dir", outDir))
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportDistrict, "district", "", "only export assessments from this district")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output directory (default from config)")
	rootCmd.AddCommand(exportCmd)
}
