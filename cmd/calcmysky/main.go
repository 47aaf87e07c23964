package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"

	"github.com/uwes-ufo/CalcMySky/atmosphere"
	"github.com/uwes-ufo/CalcMySky/internal/opengl"
	"github.com/uwes-ufo/CalcMySky/log"
	"github.com/uwes-ufo/CalcMySky/precompute"
)

var logger = log.New("calcmysky")

func main() {
	app := cli.NewApp()
	app.Name = "calcmysky"
	app.Usage = "precompute atmosphere scattering lookup textures"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config, c",
			Usage: "JSON atmosphere description",
		},
		cli.StringFlag{
			Name:  "out-dir, o",
			Value: "output",
			Usage: "destination directory for the texture dumps",
		},
		cli.BoolFlag{
			Name:  "radiance",
			Usage: "keep per-wavelength-set radiance instead of projecting to CIE XYZW luminance",
		},
		cli.IntFlag{
			Name:  "orders",
			Usage: "override the number of scattering orders from the config",
		},
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "save-ground-irradiance",
			Usage: "dump per-order irradiance textures",
		},
		cli.BoolFlag{
			Name:  "save-scattering-density",
			Usage: "dump per-order scattering density textures",
		},
		cli.BoolFlag{
			Name:  "save-scattering-density2-from-ground",
			Usage: "dump the order-2 density contribution of ground radiation",
		},
		cli.BoolFlag{
			Name:  "save-delta-scattering",
			Usage: "dump per-order delta scattering textures",
		},
		cli.BoolFlag{
			Name:  "save-accumulated-scattering",
			Usage: "dump accumulator snapshots after every order",
		},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}
}

func run(ctx *cli.Context) error {
	if ctx.Bool("v") {
		log.SetLevel(log.Debug)
	}
	configPath := ctx.String("config")
	if configPath == "" {
		return fmt.Errorf("no atmosphere description given; use --config")
	}

	atm, err := atmosphere.LoadFile(configPath)
	if err != nil {
		return err
	}
	if ctx.Bool("radiance") {
		atm.SaveAsRadiance = true
	}
	if orders := ctx.Int("orders"); orders != 0 {
		atm.ScatteringOrders = orders
		if err := atm.Validate(); err != nil {
			return err
		}
	}

	fmt.Print(atm.Stats())

	glctx, err := opengl.NewContext()
	if err != nil {
		return err
	}
	defer glctx.Destroy()

	return precompute.Run(glctx, atm, precompute.Options{
		OutputDir:                  ctx.String("out-dir"),
		SaveGroundIrradiance:       ctx.Bool("save-ground-irradiance"),
		SaveScatteringDensity:      ctx.Bool("save-scattering-density"),
		SaveScatDensity2FromGround: ctx.Bool("save-scattering-density2-from-ground"),
		SaveDeltaScattering:        ctx.Bool("save-delta-scattering"),
		SaveAccumScattering:        ctx.Bool("save-accumulated-scattering"),
	})
}
