// Command uhdrtool inspects, converts, and edits UltraHDR JPEG containers.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ultrahdrgo/ultrahdr"
)

func main() {
	root := &cobra.Command{
		Use:           "uhdrtool",
		Short:         "Inspect and convert UltraHDR JPEG containers",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newResizeCmd(),
		newRebaseCmd(),
		newDetectCmd(),
		newSplitCmd(),
		newJoinCmd(),
		newGenerateCmd(),
		newApplyCmd(),
		newToneMapCmd(),
		newEditCmd(),
	)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newResizeCmd() *cobra.Command {
	var inPath, outPath, primaryOut, gainmapOut string
	var width, height, quality, gainQuality int
	var preview bool
	cmd := &cobra.Command{
		Use:   "resize",
		Short: "Resize an UltraHDR container, preserving the gain map",
		RunE: func(cmd *cobra.Command, args []string) error {
			if inPath == "" || outPath == "" || width <= 0 || height <= 0 {
				return fmt.Errorf("missing required arguments")
			}
			if preview {
				data, err := os.ReadFile(filepath.Clean(inPath))
				if err != nil {
					return err
				}
				sr, err := ultrahdr.Split(data)
				if err != nil {
					return err
				}
				img, err := decodeAny(sr.PrimaryJPEG)
				if err != nil {
					return err
				}
				thumb := ultrahdr.Thumbnail(img, uint(width), uint(height))
				return encodeJPEGFile(outPath, thumb, quality)
			}
			return ultrahdr.ResizeUltraHDRFile(inPath, outPath, uint(width), uint(height), func(opt *ultrahdr.ResizeOptions) {
				opt.PrimaryQuality = quality
				opt.GainmapQuality = gainQuality
				opt.PrimaryOut = primaryOut
				opt.GainmapOut = gainmapOut
			})
		},
	}
	cmd.Flags().StringVar(&inPath, "in", "", "input UltraHDR JPEG")
	cmd.Flags().StringVar(&outPath, "out", "", "output JPEG")
	cmd.Flags().IntVar(&width, "w", 0, "target width")
	cmd.Flags().IntVar(&height, "h", 0, "target height")
	cmd.Flags().IntVar(&quality, "q", 85, "base quality")
	cmd.Flags().IntVar(&gainQuality, "gq", 75, "gainmap quality")
	cmd.Flags().StringVar(&primaryOut, "primary-out", "", "write primary JPEG")
	cmd.Flags().StringVar(&gainmapOut, "gainmap-out", "", "write gainmap JPEG")
	cmd.Flags().BoolVar(&preview, "preview", false, "produce a fast Lanczos preview of the primary image only, skipping the gain map")
	return cmd
}

func newRebaseCmd() *cobra.Command {
	var inPath, primaryPath, outPath, primaryOut, gainmapOut string
	var quality, gainQuality int
	cmd := &cobra.Command{
		Use:   "rebase",
		Short: "Swap the primary SDR image while preserving HDR reconstruction",
		RunE: func(cmd *cobra.Command, args []string) error {
			if inPath == "" || primaryPath == "" || outPath == "" {
				return fmt.Errorf("missing required arguments")
			}
			opts := &ultrahdr.RebaseOptions{BaseQuality: quality, GainmapQuality: gainQuality}
			return ultrahdr.RebaseUltraHDRFile(inPath, primaryPath, outPath, opts, primaryOut, gainmapOut)
		},
	}
	cmd.Flags().StringVar(&inPath, "in", "", "input UltraHDR JPEG")
	cmd.Flags().StringVar(&primaryPath, "primary", "", "new SDR JPEG")
	cmd.Flags().StringVar(&outPath, "out", "", "output UltraHDR JPEG")
	cmd.Flags().IntVar(&quality, "q", 95, "base quality")
	cmd.Flags().IntVar(&gainQuality, "gq", 85, "gainmap quality")
	cmd.Flags().StringVar(&primaryOut, "primary-out", "", "write primary JPEG")
	cmd.Flags().StringVar(&gainmapOut, "gainmap-out", "", "write gainmap JPEG")
	return cmd
}

func newDetectCmd() *cobra.Command {
	var inPath string
	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Report whether a JPEG carries a gain map",
		RunE: func(cmd *cobra.Command, args []string) error {
			if inPath == "" {
				return fmt.Errorf("missing required arguments")
			}
			f, err := os.Open(filepath.Clean(inPath))
			if err != nil {
				return err
			}
			defer f.Close()
			ok, err := ultrahdr.IsUltraHDR(f)
			if err != nil {
				return err
			}
			if ok {
				fmt.Fprintln(os.Stdout, "ultrahdr")
				return nil
			}
			fmt.Fprintln(os.Stdout, "not ultrahdr")
			return nil
		},
	}
	cmd.Flags().StringVar(&inPath, "in", "", "input JPEG")
	return cmd
}

func newSplitCmd() *cobra.Command {
	var inPath, primaryOut, gainmapOut, metaOut string
	cmd := &cobra.Command{
		Use:   "split",
		Short: "Split a container into its primary and gainmap JPEGs",
		RunE: func(cmd *cobra.Command, args []string) error {
			if inPath == "" || primaryOut == "" || gainmapOut == "" {
				return fmt.Errorf("missing required arguments")
			}
			data, err := os.ReadFile(filepath.Clean(inPath))
			if err != nil {
				return err
			}
			split, err := ultrahdr.SplitWithSegments(data)
			if err != nil {
				return err
			}
			if err := os.WriteFile(filepath.Clean(primaryOut), split.PrimaryJPEG, 0o644); err != nil {
				return err
			}
			if err := os.WriteFile(filepath.Clean(gainmapOut), split.GainmapJPEG, 0o644); err != nil {
				return err
			}
			if metaOut == "" {
				return nil
			}
			bundle, err := ultrahdr.BuildMetadataBundle(split.PrimaryJPEG, split.Segs)
			if err != nil {
				return err
			}
			payload, err := json.MarshalIndent(bundle, "", "  ")
			if err != nil {
				return err
			}
			return os.WriteFile(filepath.Clean(metaOut), payload, 0o644)
		},
	}
	cmd.Flags().StringVar(&inPath, "in", "", "input UltraHDR JPEG")
	cmd.Flags().StringVar(&primaryOut, "primary-out", "", "primary output JPEG")
	cmd.Flags().StringVar(&gainmapOut, "gainmap-out", "", "gainmap output JPEG")
	cmd.Flags().StringVar(&metaOut, "meta-out", "", "metadata json output")
	return cmd
}

func newJoinCmd() *cobra.Command {
	var templatePath, metaPath, primaryPath, gainmapPath, outPath string
	cmd := &cobra.Command{
		Use:   "join",
		Short: "Assemble a container from component JPEGs and metadata",
		RunE: func(cmd *cobra.Command, args []string) error {
			if primaryPath == "" || gainmapPath == "" || outPath == "" {
				return fmt.Errorf("missing required arguments")
			}
			primary, err := os.ReadFile(filepath.Clean(primaryPath))
			if err != nil {
				return err
			}
			gainmap, err := os.ReadFile(filepath.Clean(gainmapPath))
			if err != nil {
				return err
			}
			if metaPath != "" {
				metaData, err := os.ReadFile(filepath.Clean(metaPath))
				if err != nil {
					return err
				}
				var bundle ultrahdr.MetadataBundle
				if err := json.Unmarshal(metaData, &bundle); err != nil {
					return err
				}
				container, err := ultrahdr.AssembleFromBundle(primary, gainmap, &bundle)
				if err != nil {
					return err
				}
				return os.WriteFile(filepath.Clean(outPath), container, 0o644)
			}
			if templatePath == "" {
				return fmt.Errorf("missing --meta or --template")
			}
			template, err := os.ReadFile(filepath.Clean(templatePath))
			if err != nil {
				return err
			}
			split, err := ultrahdr.SplitWithSegments(template)
			if err != nil {
				return err
			}
			exif, icc, err := ultrahdr.ExtractExifAndIcc(primary)
			if err != nil {
				return err
			}
			if len(exif) == 0 && len(icc) == 0 {
				exif, icc, err = ultrahdr.ExtractExifAndIcc(template)
				if err != nil {
					return err
				}
			}
			container, err := ultrahdr.AssembleContainerVipsLike(primary, gainmap, exif, icc, split.Segs.SecondaryXMP, split.Segs.SecondaryISO)
			if err != nil {
				return err
			}
			return os.WriteFile(filepath.Clean(outPath), container, 0o644)
		},
	}
	cmd.Flags().StringVar(&templatePath, "template", "", "template UltraHDR JPEG for metadata")
	cmd.Flags().StringVar(&metaPath, "meta", "", "metadata json")
	cmd.Flags().StringVar(&primaryPath, "primary", "", "primary JPEG")
	cmd.Flags().StringVar(&gainmapPath, "gainmap", "", "gainmap JPEG")
	cmd.Flags().StringVar(&outPath, "out", "", "output UltraHDR JPEG")
	return cmd
}

// newGenerateCmd exposes GenerateGainMap directly: given an SDR JPEG and a
// linear HDR reference (an OpenEXR render), it builds a fresh JPEG/R
// container rather than rebasing an existing one.
func newGenerateCmd() *cobra.Command {
	var sdrPath, hdrPath, outPath string
	var quality, gainQuality int
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Build a JPEG/R container from an SDR JPEG and an HDR (EXR) reference",
		RunE: func(cmd *cobra.Command, args []string) error {
			if sdrPath == "" || hdrPath == "" || outPath == "" {
				return fmt.Errorf("missing required arguments")
			}
			return ultrahdr.RebaseUltraHDRFromEXRFile(sdrPath, hdrPath, outPath, &ultrahdr.RebaseUltraHDROptions{
				BaseQuality:    quality,
				GainmapQuality: gainQuality,
			}, "", "")
		},
	}
	cmd.Flags().StringVar(&sdrPath, "sdr", "", "SDR base JPEG")
	cmd.Flags().StringVar(&hdrPath, "hdr", "", "HDR reference (.exr)")
	cmd.Flags().StringVar(&outPath, "out", "", "output UltraHDR JPEG")
	cmd.Flags().IntVar(&quality, "q", 95, "base quality")
	cmd.Flags().IntVar(&gainQuality, "gq", 85, "gainmap quality")
	return cmd
}

// newApplyCmd exposes ApplyGainMap directly: it reconstructs an SDR-encoded
// preview of a JPEG/R container's HDR image at a given display boost.
func newApplyCmd() *cobra.Command {
	var inPath, outPath string
	var quality int
	var displayBoost float64
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Reconstruct the HDR image from a JPEG/R container at a given display boost",
		RunE: func(cmd *cobra.Command, args []string) error {
			if inPath == "" || outPath == "" {
				return fmt.Errorf("missing required arguments")
			}
			data, err := os.ReadFile(filepath.Clean(inPath))
			if err != nil {
				return err
			}
			sr, err := ultrahdr.Split(data)
			if err != nil {
				return err
			}
			sdrBuf, err := ultrahdr.DecodeJPEGBuffer(sr.PrimaryJPEG)
			if err != nil {
				return err
			}
			gainmapBuf, err := ultrahdr.DecodeGainMapJPEG(sr.GainmapJPEG)
			if err != nil {
				return err
			}
			out, err := ultrahdr.ApplyGainMap(sdrBuf, gainmapBuf, sr.Meta, ultrahdr.ApplyGainMapOptions{
				Output:          ultrahdr.ApplySDR8888,
				MaxDisplayBoost: float32(displayBoost),
			})
			if err != nil {
				return err
			}
			return encodeJPEGFile(outPath, rgba8888ToImage(out), quality)
		},
	}
	cmd.Flags().StringVar(&inPath, "in", "", "input UltraHDR JPEG")
	cmd.Flags().StringVar(&outPath, "out", "", "output JPEG")
	cmd.Flags().IntVar(&quality, "q", 90, "output quality")
	cmd.Flags().Float64Var(&displayBoost, "boost", 1.0, "target display boost, >= 1.0")
	return cmd
}

// newToneMapCmd exposes ToneMap directly: it reduces a linear HDR reference
// down to an 8-bit SDR JPEG.
func newToneMapCmd() *cobra.Command {
	var hdrPath, outPath string
	var quality int
	cmd := &cobra.Command{
		Use:   "tonemap",
		Short: "Reduce an HDR (EXR) reference to an 8-bit SDR JPEG",
		RunE: func(cmd *cobra.Command, args []string) error {
			if hdrPath == "" || outPath == "" {
				return fmt.Errorf("missing required arguments")
			}
			data, err := os.ReadFile(filepath.Clean(hdrPath))
			if err != nil {
				return err
			}
			hdrImg, err := ultrahdr.DecodeEXR(data)
			if err != nil {
				return err
			}
			p010 := ultrahdr.FloatImageToHDRBuffer(hdrImg, hdrImg.Gamut, ultrahdr.TransferHLG)
			sdr, err := ultrahdr.ToneMap(p010)
			if err != nil {
				return err
			}
			jpegData, err := ultrahdr.EncodeJPEGBuffer(sdr, quality)
			if err != nil {
				return err
			}
			return os.WriteFile(filepath.Clean(outPath), jpegData, 0o644)
		},
	}
	cmd.Flags().StringVar(&hdrPath, "hdr", "", "HDR reference (.exr)")
	cmd.Flags().StringVar(&outPath, "out", "", "output SDR JPEG")
	cmd.Flags().IntVar(&quality, "q", 90, "output quality")
	return cmd
}

// newEditCmd exposes AddEffects directly: it applies one geometric edit to
// both the primary and gain-map images of a JPEG/R container and reassembles it.
func newEditCmd() *cobra.Command {
	var inPath, outPath string
	var crop, resize string
	var mirror string
	var rotate int
	var quality, gainQuality int
	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Apply one geometric edit to a JPEG/R container's primary and gain map",
		RunE: func(cmd *cobra.Command, args []string) error {
			if inPath == "" || outPath == "" {
				return fmt.Errorf("missing required arguments")
			}
			eff, err := parseEditFlag(crop, mirror, rotate, resize)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(filepath.Clean(inPath))
			if err != nil {
				return err
			}
			sr, err := ultrahdr.Split(data)
			if err != nil {
				return err
			}
			sdrBuf, err := ultrahdr.DecodeJPEGBuffer(sr.PrimaryJPEG)
			if err != nil {
				return err
			}
			gainmapBuf, err := ultrahdr.DecodeGainMapJPEG(sr.GainmapJPEG)
			if err != nil {
				return err
			}
			newSdr, newGainmap, err := ultrahdr.AddEffects(sdrBuf, gainmapBuf, []ultrahdr.Effect{eff})
			if err != nil {
				return err
			}
			primaryOut, err := ultrahdr.EncodeJPEGBuffer(newSdr, quality)
			if err != nil {
				return err
			}
			gainmapOut, err := ultrahdr.EncodeGainMapJPEG(newGainmap, gainQuality)
			if err != nil {
				return err
			}
			container, err := ultrahdr.Join(primaryOut, gainmapOut, sr.Meta)
			if err != nil {
				return err
			}
			return os.WriteFile(filepath.Clean(outPath), container, 0o644)
		},
	}
	cmd.Flags().StringVar(&inPath, "in", "", "input UltraHDR JPEG")
	cmd.Flags().StringVar(&outPath, "out", "", "output UltraHDR JPEG")
	cmd.Flags().StringVar(&crop, "crop", "", "left,top,width,height")
	cmd.Flags().StringVar(&mirror, "mirror", "", "horizontal|vertical")
	cmd.Flags().IntVar(&rotate, "rotate", 0, "clockwise degrees: 90, 180, or 270")
	cmd.Flags().StringVar(&resize, "resize", "", "width,height")
	cmd.Flags().IntVar(&quality, "q", 95, "base quality")
	cmd.Flags().IntVar(&gainQuality, "gq", 85, "gainmap quality")
	return cmd
}

func parseEditFlag(crop, mirror string, rotate int, resize string) (ultrahdr.Effect, error) {
	set := 0
	if crop != "" {
		set++
	}
	if mirror != "" {
		set++
	}
	if rotate != 0 {
		set++
	}
	if resize != "" {
		set++
	}
	if set != 1 {
		return nil, fmt.Errorf("exactly one of --crop, --mirror, --rotate, --resize is required")
	}
	switch {
	case crop != "":
		var left, top, width, height int
		if _, err := fmt.Sscanf(crop, "%d,%d,%d,%d", &left, &top, &width, &height); err != nil {
			return nil, fmt.Errorf("invalid --crop value %q: %w", crop, err)
		}
		return ultrahdr.CropEffect{Left: left, Top: top, Width: width, Height: height}, nil
	case mirror != "":
		switch mirror {
		case "horizontal":
			return ultrahdr.MirrorEffect{Direction: ultrahdr.MirrorHorizontal}, nil
		case "vertical":
			return ultrahdr.MirrorEffect{Direction: ultrahdr.MirrorVertical}, nil
		default:
			return nil, fmt.Errorf("invalid --mirror value %q", mirror)
		}
	case rotate != 0:
		return ultrahdr.RotateEffect{Degrees: rotate}, nil
	default:
		var width, height int
		if _, err := fmt.Sscanf(resize, "%d,%d", &width, &height); err != nil {
			return nil, fmt.Errorf("invalid --resize value %q: %w", resize, err)
		}
		return ultrahdr.ResizeEffect{Width: width, Height: height}, nil
	}
}
