// Package main provides the annet CLI.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/annet-ml/annet/data"
	"github.com/annet-ml/annet/errs"
	"github.com/annet-ml/annet/internal/serialization"
	"github.com/annet-ml/annet/nn"
	"github.com/annet-ml/annet/som"
	"github.com/annet-ml/annet/tokenizer"
)

const version = "v0.1.0"

func usage(w io.Writer) {
	fmt.Fprintf(w, "annet %s - neural network construction and training\n\n", version)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  version     Show version")
	fmt.Fprintln(w, "  train-bp    Train a backpropagation network from CSV pairs")
	fmt.Fprintln(w, "  train-som   Train a self-organizing map from CSV or text")
	fmt.Fprintln(w, "  info        Describe a stored .annet file")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'annet <command> -h' for command flags.")
}

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "version":
		fmt.Printf("annet %s\n", version)
		return
	case "train-bp":
		err = trainBP(os.Args[2:])
	case "train-som":
		err = trainSOM(os.Args[2:])
	case "info":
		err = info(os.Args[2:], os.Stdout)
	case "help", "-h", "--help":
		usage(os.Stdout)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage(os.Stderr)
		os.Exit(2)
	}
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "annet: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps an error kind to a process exit status.
func exitCode(err error) int {
	switch errs.KindOf(err) {
	case errs.KindConfiguration:
		return 3
	case errs.KindDimensionMismatch:
		return 4
	case errs.KindIO:
		return 5
	case errs.KindDevice:
		return 6
	case errs.KindNumericInstability:
		return 7
	default:
		return 1
	}
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func trainBP(args []string) error {
	fs := flag.NewFlagSet("train-bp", flag.ContinueOnError)
	dataPath := fs.String("data", "", "CSV file of input and output columns (required)")
	layers := fs.String("layers", "3,32,6", "Comma-separated layer sizes, input first")
	lr := fs.Float64("lr", 0.075, "Learning rate")
	momentum := fs.Float64("momentum", 0, "Momentum")
	decay := fs.Float64("decay", 0, "Weight decay")
	transfer := fs.String("transfer", "sigmoid", "Transfer function: "+names(nn.TransferFunctions()))
	cycles := fs.Int("cycles", 10000, "Maximum training epochs")
	target := fs.Float64("target", 0.001, "Stop once the epoch error drops below this")
	seed := fs.Int64("seed", 0, "Weight initializer seed")
	out := fs.String("out", "", "Write the trained network to this .annet file")
	verbose := fs.Bool("v", false, "Log every epoch")
	if err := fs.Parse(args); err != nil {
		return err
	}

	sizes, err := parseSizes(*layers)
	if err != nil {
		return err
	}
	tr, err := nn.ParseTransferFunction(*transfer)
	if err != nil {
		return err
	}
	set, err := readCSV(*dataPath, sizes[0], sizes[len(sizes)-1])
	if err != nil {
		return err
	}

	cfg := nn.DefaultConfig()
	cfg.LearningRate = *lr
	cfg.Momentum = *momentum
	cfg.WeightDecay = *decay
	cfg.Transfer = tr
	cfg.Seed = *seed
	cfg.Logger = newLogger(*verbose)
	net, err := nn.NewFeedForward(cfg, sizes...)
	if err != nil {
		return err
	}
	net.SetTrainingSet(set)

	history, err := net.TrainFromData(*cycles, *target)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %d epochs, error %.6g\n", net, len(history), history[len(history)-1])

	if *out != "" {
		return net.ExportToStorage(*out)
	}
	return nil
}

func trainSOM(args []string) error {
	fs := flag.NewFlagSet("train-som", flag.ContinueOnError)
	dataPath := fs.String("data", "", "CSV file of input columns")
	textPath := fs.String("text", "", "Text file with one document per line, featurized with -encoding")
	encoding := fs.String("encoding", "cl100k_base", "Tiktoken encoding for -text")
	inSize := fs.Int("in", 0, "Input vector length (the featurizer dimension with -text)")
	width := fs.Int("width", 10, "Grid columns")
	height := fs.Int("height", 10, "Grid rows")
	lr := fs.Float64("lr", 0.1, "Initial learning rate")
	sigma := fs.Float64("sigma", 0, "Initial neighborhood spread (0 for half the grid)")
	neighborhood := fs.String("neighborhood", "gaussian", "Kernel: "+names(som.Neighborhoods()))
	conscienceRate := fs.Float64("conscience-rate", 0, "Conscience smoothing rate")
	conscienceBias := fs.Float64("conscience-bias", 0, "Conscience penalty weight")
	devices := fs.Int("devices", 1, "Number of devices sharing the map")
	backend := fs.String("backend", "cpu", "Device backend: cpu, webgpu")
	cycles := fs.Int("cycles", 100, "Maximum training epochs")
	target := fs.Float64("target", 0, "Stop once the quantization error drops below this")
	seed := fs.Int64("seed", 0, "Weight initializer seed")
	out := fs.String("out", "", "Write the trained map to this .annet file")
	verbose := fs.Bool("v", false, "Log every epoch")
	if err := fs.Parse(args); err != nil {
		return err
	}

	nb, err := som.ParseNeighborhood(*neighborhood)
	if err != nil {
		return err
	}
	be, err := som.ParseBackend(*backend)
	if err != nil {
		return err
	}

	logger := newLogger(*verbose)
	var set *data.TrainingSet
	switch {
	case *textPath != "":
		set, err = readText(logger, *textPath, *encoding, *inSize)
	case *dataPath != "":
		set, err = readCSV(*dataPath, *inSize, 0)
	default:
		err = errs.New(errs.KindConfiguration, "train-som", "one of -data or -text is required")
	}
	if err != nil {
		return err
	}

	m, err := som.New(som.Config{
		InputSize:      *inSize,
		Width:          *width,
		Height:         *height,
		LearningRate:   *lr,
		Neighborhood:   nb,
		Sigma:          *sigma,
		ConscienceRate: *conscienceRate,
		ConscienceBias: *conscienceBias,
		Devices:        *devices,
		Backend:        be,
		Seed:           *seed,
		Logger:         logger,
	})
	if err != nil {
		return err
	}
	m.SetTrainingSet(set)

	history, err := m.TrainFromData(*cycles, *target)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %d epochs, quantization error %.6g\n", m, len(history), history[len(history)-1])

	if *out != "" {
		return m.ExportToStorage(*out)
	}
	return nil
}

func info(args []string, w io.Writer) error {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("info takes one file, got %d", fs.NArg())
	}

	f, err := serialization.ReadFile(fs.Arg(0))
	if err != nil {
		return errs.Wrap(errs.KindIO, "info", err)
	}
	h := f.Header
	fmt.Fprintf(w, "model:    %s (format v%d, %s, %s)\n", h.ModelType, h.FormatVersion, h.Creator, h.CreatedAt.Format("2006-01-02 15:04:05"))
	for i, l := range h.Layers {
		fmt.Fprintf(w, "layer %d:  %s %d\n", i, l.Kind, l.Size)
	}
	switch h.ModelType {
	case serialization.ModelBPNet:
		fmt.Fprintf(w, "hyper:    lr=%g momentum=%g decay=%g transfer=%s\n",
			h.Hyper.LearningRate, h.Hyper.Momentum, h.Hyper.WeightDecay, h.Hyper.Transfer)
	case serialization.ModelSOM:
		fmt.Fprintf(w, "hyper:    grid=%dx%d lr=%g sigma=%g neighborhood=%s conscience=%g/%g\n",
			h.Hyper.GridWidth, h.Hyper.GridHeight, h.Hyper.LearningRate, h.Hyper.Sigma,
			h.Hyper.Neighborhood, h.Hyper.ConscienceRate, h.Hyper.ConscienceBias)
	}
	for _, name := range f.TensorNames() {
		shape, _ := f.Shape(name)
		fmt.Fprintf(w, "tensor:   %-20s %v\n", name, shape)
	}
	fmt.Fprintf(w, "training: %t\n", f.HasTrainingSet())
	return nil
}

func names[T fmt.Stringer](values []T) string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = v.String()
	}
	return strings.Join(out, ", ")
}

func parseSizes(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	sizes := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, errs.Wrap(errs.KindConfiguration, "parse layers", err)
		}
		sizes = append(sizes, n)
	}
	return sizes, nil
}

func readCSV(path string, inSize, outSize int) (*data.TrainingSet, error) {
	//nolint:gosec // G304: Path comes from the command line
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Wrap(errs.KindIO, "read data", err)
	}
	defer f.Close()
	return data.ReadCSV(bufio.NewReader(f), inSize, outSize)
}

func readText(logger *slog.Logger, path, encoding string, dim int) (*data.TrainingSet, error) {
	raw, err := os.ReadFile(path) //nolint:gosec // G304: Path comes from the command line
	if err != nil {
		return nil, errs.Wrap(errs.KindIO, "read text", err)
	}
	tok, err := tokenizer.NewTikToken(encoding)
	if err != nil {
		return nil, errs.Wrap(errs.KindConfiguration, "load tokenizer", err)
	}
	logger.Debug("tokenizer loaded", "encoding", encoding, "vocab", tok.VocabSize(), "dim", dim)
	feat, err := data.NewTextFeaturizer(tok, dim)
	if err != nil {
		return nil, err
	}
	var docs []string
	for _, line := range strings.Split(string(raw), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			docs = append(docs, line)
		}
	}
	return feat.TrainingSet(docs)
}
