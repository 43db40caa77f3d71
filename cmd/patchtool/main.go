// patchtool is a CLI utility for inspecting, converting and evaluating
// patch tables.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/patchtables/internal/config"
	"github.com/Faultbox/patchtables/internal/logger"
	"github.com/Faultbox/patchtables/pkg/far"
	"github.com/Faultbox/patchtables/pkg/farfile"
	"github.com/Faultbox/patchtables/pkg/primvar"
	"github.com/Faultbox/patchtables/pkg/tessellate"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "info", "dump":
		cmdInfo(args)
	case "eval", "e":
		cmdEval(args)
	case "convert", "c":
		cmdConvert(args)
	case "export", "glb":
		cmdExport(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`patchtool - patch tables utility

Usage:
  patchtool <command> [options]

Commands:
  info <tables>                                   Show table summary and dump
  eval <tables> <vertices.yaml> <array> <patch> <s> <t>
                                                  Evaluate one limit point
  convert <in> <out>                              Convert between .yaml and .ptbl
  export <tables> <vertices.yaml> <out.glb>       Tessellate the limit surface

Vertex files list "vertices" as [x, y, z] and may add "uvs" as [u, v];
export writes uvs through face-varying channel tessellation.uv_channel.

Tables are read from .yaml descriptions or binary .ptbl files.

Options (all commands):
  -config <path>       Config file (default ./patchtool.yaml)
  -debug               Enable debug logging
  -level <n>           Tessellation segments per patch edge
  -workers <n>         Concurrent patch evaluations (0 = all CPUs)
  -compression <name>  Output compression: none or zstd

Examples:
  patchtool info cube.ptbl
  patchtool info -vertices cube_vertices.yaml cube.ptbl
  patchtool eval cube.yaml cube_vertices.yaml 0 3 0.5 0.5
  patchtool convert cube.yaml cube.ptbl
  patchtool export -level 16 cube.ptbl cube_vertices.yaml cube.glb`)
}

// setup parses fs with the shared flags added, loads the config and
// starts logging.
func setup(fs *flag.FlagSet, args []string) *config.Config {
	flags := config.BindFlags(fs)
	fs.Parse(args)

	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func fail(err error) {
	logger.Error("command failed", zap.Error(err))
	logger.Sync()
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// loadTables reads a YAML description or a binary table file.
func loadTables(path string) (*far.PatchTables, error) {
	if !isYAML(path) {
		return farfile.ReadFile(path)
	}
	d, err := farfile.LoadYAML(path)
	if err != nil {
		return nil, err
	}
	pt, err := d.Build()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	logger.Sugar.Debugf("built %d patches from %s", pt.NumPatchesTotal(), path)
	return pt, nil
}

// checkVertices rejects vertex buffers shorter than the tables reference.
func checkVertices(pt *far.PatchTables, verts primvar.Vec3Buffer) error {
	return tessellate.CheckSource("vertex", verts, pt.NumSourceVertices())
}

func cmdInfo(args []string) {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	vertsPath := fs.String("vertices", "", "Vertex file; prints the resolved end-cap points")
	setup(fs, args)
	defer logger.Sync()

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: patchtool info [-vertices <vertices.yaml>] <tables>")
		os.Exit(1)
	}

	pt, err := loadTables(fs.Arg(0))
	if err != nil {
		fail(err)
	}

	kind := "uniform"
	if pt.IsFeatureAdaptive() {
		kind = "feature adaptive"
	}
	fmt.Printf("Tables:      %s\n", fs.Arg(0))
	fmt.Printf("Kind:        %s\n", kind)
	fmt.Printf("Patches:     %d in %d arrays\n", pt.NumPatchesTotal(), pt.NumPatchArrays())
	fmt.Printf("Ptex faces:  %d\n", pt.NumPtexFaces())
	fmt.Printf("Max valence: %d\n", pt.MaxValence())
	fmt.Printf("FVar:        %d channels\n", pt.NumFVarChannels())
	if s := pt.EndCapVertexStencils(); s != nil {
		fmt.Printf("End caps:    %d vertex stencils\n", s.NumStencils())
	}
	fmt.Println()

	if err := pt.Dump(os.Stdout); err != nil {
		fail(err)
	}

	if *vertsPath == "" {
		return
	}
	verts, err := farfile.LoadVertices(*vertsPath)
	if err != nil {
		fail(err)
	}
	if err := checkVertices(pt, verts); err != nil {
		fail(err)
	}
	st := pt.EndCapVertexStencils()
	if st == nil {
		fmt.Println("\nNo end-cap stencils to resolve.")
		return
	}
	points := make(primvar.Vec3Buffer, st.NumStencils())
	far.UpdateValues[primvar.Vec3](st, verts, points.Slot)
	fmt.Println("\nEnd-cap points:")
	for i, p := range points {
		fmt.Printf("  %4d %s\n", i, formatVec(p))
	}
}

func cmdEval(args []string) {
	fs := flag.NewFlagSet("eval", flag.ExitOnError)
	setup(fs, args)
	defer logger.Sync()

	if fs.NArg() < 6 {
		fmt.Fprintln(os.Stderr, "Usage: patchtool eval <tables> <vertices.yaml> <array> <patch> <s> <t>")
		os.Exit(1)
	}

	pt, err := loadTables(fs.Arg(0))
	if err != nil {
		fail(err)
	}
	verts, err := farfile.LoadVertices(fs.Arg(1))
	if err != nil {
		fail(err)
	}
	if err := checkVertices(pt, verts); err != nil {
		fail(err)
	}

	var index [2]int
	for i := range index {
		if index[i], err = strconv.Atoi(fs.Arg(2 + i)); err != nil {
			fail(fmt.Errorf("argument %d: %w", 3+i, err))
		}
	}
	var uv [2]float64
	for i := range uv {
		if uv[i], err = strconv.ParseFloat(fs.Arg(4+i), 32); err != nil {
			fail(fmt.Errorf("argument %d: %w", 5+i, err))
		}
	}

	frame, h, err := evaluate(pt, index[0], index[1], float32(uv[0]), float32(uv[1]), verts)
	if err != nil {
		fail(err)
	}
	logger.Debug("evaluated limit point", logger.Handle(h),
		zap.Stringer("descriptor", pt.PatchDescriptor(h)),
		zap.Float64("s", uv[0]), zap.Float64("t", uv[1]))

	fmt.Printf("Patch:    %s (array %d, patch %d)\n", pt.PatchDescriptor(h), h.ArrayIndex, h.PatchIndex)
	fmt.Printf("Position: %s\n", formatVec(frame.P))
	fmt.Printf("dP/ds:    %s\n", formatVec(frame.DS))
	fmt.Printf("dP/dt:    %s\n", formatVec(frame.DT))
	fmt.Printf("Normal:   %s\n", formatVec(frame.Normal()))
}

// evaluate looks up a patch and evaluates it, reporting contract violations
// such as an out-of-range patch as errors.
func evaluate(pt *far.PatchTables, array, patch int, s, t float32, verts primvar.Vec3Buffer) (frame primvar.LimitFrame, h far.PatchHandle, err error) {
	defer func() {
		if r := recover(); r != nil {
			ce, ok := r.(*far.ContractError)
			if !ok {
				panic(r)
			}
			err = ce
		}
	}()

	h = pt.Handle(array, patch)
	if pt.IsFeatureAdaptive() {
		far.Evaluate[primvar.Vec3](pt, h, s, t, verts, &frame)
	} else {
		far.EvaluateBilinear[primvar.Vec3](pt, h, s, t, verts, &frame)
	}
	return frame, h, nil
}

func formatVec(v primvar.Vec3) string {
	return fmt.Sprintf("%10.6f %10.6f %10.6f", v.X, v.Y, v.Z)
}

func cmdConvert(args []string) {
	fs := flag.NewFlagSet("convert", flag.ExitOnError)
	cfg := setup(fs, args)
	defer logger.Sync()

	if fs.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "Usage: patchtool convert <in> <out>")
		os.Exit(1)
	}
	in, out := fs.Arg(0), fs.Arg(1)

	pt, err := loadTables(in)
	if err != nil {
		fail(err)
	}

	format := cfg.Output.Format
	switch ext := strings.ToLower(filepath.Ext(out)); {
	case isYAML(out):
		format = config.FormatYAML
	case ext == ".ptbl":
		format = config.FormatBinary
	}

	if format == config.FormatYAML {
		err = farfile.Describe(pt).SaveYAML(out)
	} else {
		err = farfile.WriteFile(out, pt, farfile.Options{Compression: cfg.Output.Compression})
	}
	if err != nil {
		fail(err)
	}

	logger.Info("converted patch tables",
		zap.String("in", in),
		zap.String("out", out),
		zap.String("format", format),
		zap.Stringer("compression", cfg.Output.Compression))
	fmt.Printf("Wrote %s (%d patches)\n", out, pt.NumPatchesTotal())
}

func cmdExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	cfg := setup(fs, args)
	defer logger.Sync()

	if fs.NArg() < 3 {
		fmt.Fprintln(os.Stderr, "Usage: patchtool export <tables> <vertices.yaml> <out.glb>")
		os.Exit(1)
	}

	pt, err := loadTables(fs.Arg(0))
	if err != nil {
		fail(err)
	}
	pv, err := farfile.LoadPrimvars(fs.Arg(1))
	if err != nil {
		fail(err)
	}

	opts := tessellate.Options{
		Level:     cfg.Tessellation.Level,
		Workers:   cfg.Tessellation.Workers,
		Normals:   cfg.Tessellation.Normals,
		UVChannel: cfg.Tessellation.UVChannel,
	}.WithLogger(logger.Log)
	switch {
	case pv.UVs == nil:
	case cfg.Tessellation.UVChannel < pt.NumFVarChannels():
		opts.UVs = pv.UVs
	default:
		logger.Warn("no face-varying channel for uvs; exporting without texture coordinates",
			zap.Int("uv_channel", cfg.Tessellation.UVChannel),
			zap.Int("channels", pt.NumFVarChannels()))
	}

	mesh, err := tessellate.Tessellate(context.Background(), pt, pv.Vertices, opts)
	if err != nil {
		fail(err)
	}
	if err := mesh.WriteGLB(fs.Arg(2)); err != nil {
		fail(err)
	}

	fmt.Printf("Wrote %s: %d patches, %d vertices, %d triangles", fs.Arg(2),
		len(mesh.Patches), len(mesh.Positions), mesh.NumTriangles())
	if mesh.Skipped > 0 {
		fmt.Printf(" (%d skipped)", mesh.Skipped)
	}
	fmt.Println()
}
