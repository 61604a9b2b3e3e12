package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func (a *app) displaysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "displays",
		Short: "List connected displays",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := a.open(cmd)
			if err != nil {
				return err
			}
			return env.run(func() error {
				displays, err := env.svc.Displays(cmd.Context())
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tHANDLE")
				for _, d := range displays {
					fmt.Fprintf(tw, "%d\t%#x\n", d.ExternalID, uint64(d.Handle))
				}
				return tw.Flush()
			})
		},
	}
}

func (a *app) catalogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "catalog",
		Short: "List satellites, views and image sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := a.open(cmd)
			if err != nil {
				return err
			}
			return env.run(func() error {
				snap, err := env.svc.Catalog(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "etag %s, downloaded %s\n", snap.ETag, time.Unix(snap.DownloadedAt, 0).Format(time.RFC3339))

				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "SATELLITE\tVIEW\tSOURCE\tSIZE\tDIMENSIONS\tEVERY\tSCALING")
				for _, sat := range snap.Catalog.Satellites {
					for _, view := range sat.Views {
						for _, src := range view.ImageSources {
							size := src.EstimatedSize
							if src.IsThumbnail {
								size += " (thumb)"
							}
							fmt.Fprintf(tw, "%d %s\t%d %s\t%d\t%s\t%dx%d\t%s\t%s\n",
								sat.ID, sat.Name, view.ID, view.Name, src.ID, size,
								src.Dimensions.Width(), src.Dimensions.Height(),
								time.Duration(src.UpdateInterval)*time.Second, src.DefaultScaling)
						}
					}
				}
				return tw.Flush()
			})
		},
	}
}

func (a *app) imagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "images",
		Short: "List downloaded images",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := a.open(cmd)
			if err != nil {
				return err
			}
			return env.run(func() error {
				recs, err := env.svc.Images()
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "NAME\tBYTES\tDOWNLOADED\tPATH")
				for _, r := range recs {
					fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", r.Name, r.Size,
						time.Unix(r.DownloadedAt, 0).Format(time.RFC3339), r.Path)
				}
				return tw.Flush()
			})
		},
	}
}

func (a *app) updateCmd() *cobra.Command {
	var satelliteID, viewID uint64
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Download the latest image of a view and set it as wallpaper",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := a.open(cmd)
			if err != nil {
				return err
			}
			req := env.cfg.UpdateRequest()
			if cmd.Flags().Changed("satellite") {
				req.SatelliteID = satelliteID
			}
			if cmd.Flags().Changed("view") {
				req.ViewID = viewID
			}
			return env.run(func() error {
				res, err := env.svc.Update(cmd.Context(), req)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s on display %d: %s\n",
					res.Satellite.Name, res.View.Name, res.Display.ExternalID, res.ImagePath)
				return nil
			})
		},
	}
	cmd.Flags().Uint64Var(&satelliteID, "satellite", 0, "satellite id (default watch.satellite or first in catalog)")
	cmd.Flags().Uint64Var(&viewID, "view", 0, "view id (default watch.view or first of the satellite)")
	return cmd
}
