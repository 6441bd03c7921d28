package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
)

const (
	ImagePNG  = "png"
	ImageJPEG = "jpeg"
)

type ImageFormat string

type Config struct {
	DBPath        string
	ScanID        int64
	OutputFile    string
	Format        ImageFormat
	Width         int
	Height        int
	MaxVSWR       float64
	NoAnnotations bool
}

var validImageFormats = map[ImageFormat]struct{}{
	ImagePNG:  {},
	ImageJPEG: {},
}

func NewConfig() *Config {
	return &Config{
		Format:  ImagePNG,
		Width:   defaultPlotWidth,
		Height:  defaultPlotHeight,
		MaxVSWR: defaultMaxVSWR,
	}
}

func NewConfigFromCLI() (*Config, error) {
	return parseConfig(flag.CommandLine, os.Args[1:])
}

func parseConfig(fs *flag.FlagSet, args []string) (*Config, error) {
	c := NewConfig()

	var imageFormat string
	fs.StringVar(&c.DBPath, "db", "", "Path to the database file")
	fs.Int64Var(&c.ScanID, "scan", 1, "Scan ID")
	fs.StringVar(&c.OutputFile, "o", "", "Path to the output file, without extension")
	fs.StringVar(&imageFormat, "f", string(ImagePNG), "Output image format. [png, jpeg]")
	fs.IntVar(&c.Width, "width", defaultPlotWidth, "Plot area width in pixels")
	fs.IntVar(&c.Height, "height", defaultPlotHeight, "Plot area height in pixels")
	fs.Float64Var(&c.MaxVSWR, "max-swr", defaultMaxVSWR, "Upper limit of the SWR axis")
	fs.BoolVar(&c.NoAnnotations, "no-annotations", false, "Disable annotations such as SWR and frequency scales")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	imageFormat = strings.ToLower(imageFormat)

	var err error
	switch {
	case c.DBPath == "":
		err = errors.New("db path is required")
	case c.ScanID <= 0:
		err = errors.New("scan id is required")
	case c.OutputFile == "":
		err = errors.New("output file is required")
	case c.Width < minPlotSize || c.Height < minPlotSize:
		err = fmt.Errorf("plot size must be at least %dx%d pixels", minPlotSize, minPlotSize)
	case c.MaxVSWR <= 1:
		err = fmt.Errorf("invalid max SWR: %0.2f", c.MaxVSWR)
	default:
		if _, ok := validImageFormats[ImageFormat(imageFormat)]; !ok {
			err = fmt.Errorf("invalid image format: %s", imageFormat)
		}
	}

	if err != nil {
		fs.Usage()
		return nil, err
	}

	c.Format = ImageFormat(imageFormat)
	c.OutputFile = fmt.Sprintf("%s.%s", c.OutputFile, c.Format)
	return c, nil
}
