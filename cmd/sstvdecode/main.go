// Command sstvdecode decodes an SSTV audio stream read from stdin into a
// PNG image, following the flag/config/metrics conventions of this
// repository's own server entry point.
package main

import (
	"bufio"
	"encoding/binary"
	"flag"
	"image"
	"image/color"
	"image/png"
	"log"
	"net/http"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ubersdr-labs/sstvdecode/sstv"
)

func main() {
	configFile := flag.String("config", "", "Path to a yaml config file (optional, defaults used otherwise)")
	input := flag.String("input", "-", "Path to raw signed 16-bit little-endian PCM input, or - for stdin")
	output := flag.String("output", "out.png", "Path to write the decoded PNG image")
	gzipOut := flag.Bool("gzip", false, "Also write a gzip-compressed copy of the PNG for at-rest storage")
	metricsAddr := flag.String("metrics-addr", "", "If set, serve Prometheus metrics on this address (e.g. :9109)")
	previewAddr := flag.String("preview-addr", "", "If set, serve live PNG snapshots of the in-progress image over websocket on this address (e.g. :9110, path /preview)")
	flag.Parse()

	cfg := sstv.DefaultConfig()
	if *configFile != "" {
		loaded, err := sstv.LoadConfig(*configFile)
		if err != nil {
			log.Fatalf("failed to load configuration: %v", err)
		}
		cfg = loaded
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	var reg prometheus.Registerer = prometheus.NewRegistry()
	metrics := sstv.NewMetrics(reg)

	if *metricsAddr != "" {
		promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: "sstv",
			Name:      "cli_build_info",
			Help:      "Constant 1, present so the metrics endpoint always exports at least one series.",
		}).Set(1)
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg.(*prometheus.Registry), promhttp.HandlerOpts{}))
		go func() {
			log.Printf("[sstvdecode] serving metrics on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				log.Printf("[sstvdecode] metrics server exited: %v", err)
			}
		}()
	}

	var preview *previewHub
	if *previewAddr != "" {
		preview = newPreviewHub()
		mux := http.NewServeMux()
		mux.HandleFunc("/preview", preview.handle)
		go func() {
			log.Printf("[sstvdecode] serving live preview on %s/preview", *previewAddr)
			if err := http.ListenAndServe(*previewAddr, mux); err != nil {
				log.Printf("[sstvdecode] preview server exited: %v", err)
			}
		}()
	}

	samples, err := readPCM(*input)
	if err != nil {
		log.Fatalf("failed to read input: %v", err)
	}

	catalogue := sstv.NewCatalogue(cfg.SampleRate)
	if err := catalogue.Validate(); err != nil {
		log.Fatalf("invalid mode catalogue: %v", err)
	}

	decoder := sstv.NewDecoder(catalogue, cfg)
	decoder.SetMetrics(metrics)

	freqs, err := sstv.EstimateFrequencies(samples, cfg)
	if err != nil {
		log.Fatalf("failed to estimate frequencies: %v", err)
	}

	var results []sstv.Result
	const previewEvery = 15000 // ~1s of audio at typical Fs; broadcast at most this often
	for i, f := range freqs {
		if r := decoder.Step(i, f); r != nil {
			results = append(results, *r)
			if preview != nil {
				preview.broadcast(r.Raster)
			}
		} else if preview != nil && i%previewEvery == 0 {
			if partial := decoder.CurrentRaster(); partial != nil {
				preview.broadcast(partial)
			}
		}
	}
	if r := decoder.Finish(); r != nil {
		results = append(results, *r)
	}
	if len(results) == 0 {
		log.Fatalf("no image decoded: no sync pulses matched a catalogued mode")
	}

	last := results[len(results)-1]
	if last.Partial {
		log.Printf("[sstvdecode] warning: final image is partial (mode %s)", last.Mode.Name)
	}

	if err := writePNG(*output, last.Raster); err != nil {
		log.Fatalf("failed to write PNG: %v", err)
	}
	log.Printf("[sstvdecode] wrote %s (mode %s, %dx%d)", *output, last.Mode.Name, last.Mode.Width, last.Mode.Height)

	if *gzipOut {
		if err := writeGzippedCopy(*output); err != nil {
			log.Fatalf("failed to write gzip snapshot: %v", err)
		}
		log.Printf("[sstvdecode] wrote %s.gz", *output)
	}
}

// readPCM reads a stream of signed 16-bit little-endian samples from
// path, or stdin if path is "-". Raw PCM in, not a WAV/container parser
// — file ingestion and container parsing are an external collaborator.
func readPCM(path string) ([]int16, error) {
	var f *os.File
	if path == "-" {
		f = os.Stdin
	} else {
		opened, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer opened.Close()
		f = opened
	}

	r := bufio.NewReader(f)
	var samples []int16
	buf := make([]byte, 2)
	for {
		if _, err := readFull(r, buf); err != nil {
			break
		}
		samples = append(samples, int16(binary.LittleEndian.Uint16(buf)))
	}
	return samples, nil
}

func readFull(r *bufio.Reader, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := r.Read(buf[n:])
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// writePNG renders a decoded raster as an RGB PNG. Output image encoding
// is stdlib image/png deliberately: it is named as an external
// collaborator, not a core-algorithm concern, and no third-party PNG
// encoder appears anywhere in the retrieval pack to justify reaching
// past the standard library for it.
func writePNG(path string, raster *sstv.Raster) error {
	img := image.NewRGBA(image.Rect(0, 0, raster.Width, raster.Height))
	raster.ForEachPixel(func(row, col int, r, g, b int32) (int32, int32, int32) {
		img.Set(col, row, color.RGBA{
			R: uint8(sstv.ClampChannel(r)),
			G: uint8(sstv.ClampChannel(g)),
			B: uint8(sstv.ClampChannel(b)),
			A: 255,
		})
		return r, g, b
	})

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return png.Encode(f, img)
}

// writeGzippedCopy gzip-compresses the PNG at path into path+".gz", for
// at-rest storage of completed-image snapshots.
func writeGzippedCopy(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	out, err := os.Create(path + ".gz")
	if err != nil {
		return err
	}
	defer out.Close()

	gw := gzip.NewWriter(out)
	if _, err := gw.Write(data); err != nil {
		gw.Close()
		return err
	}
	return gw.Close()
}
