// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sep "github.com/stellarforge/sep"
	"github.com/stellarforge/sep/internal/batch"
	"github.com/stellarforge/sep/internal/fitsio"
	"github.com/stellarforge/sep/internal/restapi"
	"github.com/stellarforge/sep/internal/seplog"
	"github.com/stellarforge/sep/internal/sysinfo"
)

const version = "0.1.0"

var port = flag.Int64("port", 8080, "port for serving the HTTP extraction API")
var chroot = flag.String("chroot", "", "directory to chroot and chdir to when serving HTTP. must be run as root")
var setuid = flag.Int64("setuid", -1, "user id number to setuid to when serving HTTP. must be run as root")

var catOut = flag.String("out", "%auto", "save catalog to `file`. %auto replaces the input suffix with .cat")
var jpgOut = flag.String("jpg", "", "save a JPEG preview with detections outlined to `file`. %auto replaces the input suffix with .jpg, blank disables")
var log = flag.String("log", "", "save log output to `file` in addition to stdout")

var bw = flag.Int64("bw", 64, "background mesh cell width in pixels")
var bh = flag.Int64("bh", 64, "background mesh cell height in pixels")

var thresh = flag.Float64("thresh", 1.5, "detection threshold, in multiples of the background RMS")
var minarea = flag.Int64("minarea", 5, "minimum object area in pixels")
var conn8 = flag.Bool("conn8", true, "eight-connectivity for the detection scan, false selects four")

var deblendN = flag.Int64("deblendN", 32, "number of deblending threshold levels")
var deblendCont = flag.Float64("deblendCont", 0.005, "minimum contrast ratio for deblending")

var clean = flag.Bool("clean", true, "clean marginal detections against brighter neighbors")
var cleanParam = flag.Float64("cleanParam", 1.0, "clean parameter; higher merges less aggressively")

var threads = flag.Int64("threads", 0, "maximum number of images to process concurrently, 0=auto")

func main() {
	start := time.Now()
	flag.Usage = func() {
		fmt.Fprintf(os.Stdout, `sep Copyright (c) 2020 Markus L. Noga
This program comes with ABSOLUTELY NO WARRANTY.
This is free software, and you are welcome to redistribute it under certain conditions.
Refer to https://www.gnu.org/licenses/gpl-3.0.en.html for details.

Usage: %s [-flag value] (extract|serve|legal|version) (img0.fits ... imgn.fits)

Commands:
  extract  Detect and measure sources in the given FITS images
  serve    Serve the extraction API over HTTP
  legal    Show license and attribution information
  version  Show version information

Flags:
`, os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *log != "" {
		if err := seplog.AlsoToFile(*log); err != nil {
			fmt.Fprintf(os.Stderr, "unable to open log file %s: %s\n", *log, err)
			os.Exit(1)
		}
	}

	args := flag.Args()
	if len(args) < 1 {
		flag.Usage()
		return
	}

	var err error
	switch args[0] {
	case "serve":
		info := sysinfo.Gather()
		seplog.Printf("sep %s on %s, %d MiB RAM, %d logical CPUs\n", version, info.BrandName, info.TotalMemoryMiB, info.NumCPU)
		restapi.MakeSandbox(*chroot, int(*setuid))
		err = restapi.Serve(int(*port), extractionConfig())

	case "extract":
		info := sysinfo.Gather()
		concurrency := int(*threads)
		if concurrency <= 0 {
			concurrency = info.RecommendedConcurrency()
		}
		seplog.Printf("sep %s, extracting %d file(s) with up to %d concurrent\n", version, len(args)-1, concurrency)
		_, err = batch.RunConcurrentErr(args[1:], concurrency, func(fileName string) (struct{}, error) {
			return struct{}{}, extractOne(fileName)
		})

	case "legal":
		fmt.Fprint(os.Stdout, legal)

	case "version":
		fmt.Fprintf(os.Stdout, "Version %s\n", version)

	case "help", "?":
		flag.Usage()

	default:
		fmt.Fprintf(os.Stdout, "Unknown command '%s'\n\n", args[0])
		flag.Usage()
		return
	}

	if err != nil {
		seplog.Printf("Error: %s\n", err.Error())
		os.Exit(1)
	}
	seplog.Printf("\nDone after %s\n", time.Since(start).Round(time.Millisecond*10))
}

func extractionConfig() restapi.ExtractionConfig {
	return restapi.ExtractionConfig{
		BW: int32(*bw), BH: int32(*bh),
		Thresh: float32(*thresh), MinArea: int32(*minarea), Conn8: *conn8,
		DeblendNThresh: int(*deblendN), DeblendCont: float32(*deblendCont),
		Clean: *clean, CleanParam: float32(*cleanParam),
	}
}

func extractOne(fileName string) error {
	img, err := fitsio.ReadFile(fileName)
	if err != nil {
		return err
	}
	buf := sep.NewFloat32Buffer(img.Data, img.Width, img.Height)

	bg, err := sep.MakeBackground(buf, sep.DefaultBackgroundConfig(int32(*bw), int32(*bh)))
	if err != nil {
		return err
	}
	defer bg.Free()
	if err := bg.SubtractFromArray(img.Data); err != nil {
		return err
	}
	buf.GlobalRMS = bg.GlobalRMS()

	list, err := sep.Extract(buf, sep.ExtractConfig{
		Thresh: float32(*thresh), ThreshType: sep.ThreshRelative,
		MinArea: int32(*minarea), Conn8: *conn8,
		DeblendNThresh: int(*deblendN), DeblendCont: float32(*deblendCont),
		Clean: *clean, CleanParam: float32(*cleanParam),
	})
	if err != nil {
		return err
	}

	entries, err := sep.BuildCatalog(buf, list)
	if err != nil {
		return err
	}

	out := *catOut
	if out == "%auto" {
		out = strings.TrimSuffix(fileName, filepath.Ext(fileName)) + ".cat"
	}
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	defer f.Close()
	seplog.Printf("%s: %d object(s) above %.2f background RMS -> %s\n", fileName, len(list.Objects), *thresh, out)
	if err := sep.WriteCatalog(f, entries); err != nil {
		return err
	}

	jpg := *jpgOut
	if jpg == "%auto" {
		jpg = strings.TrimSuffix(fileName, filepath.Ext(fileName)) + ".jpg"
	}
	if jpg != "" {
		min, max := imgRange(img.Data)
		if err := sep.RenderPreviewToFile(jpg, buf, list, min, max, 1.0/2.2, 90); err != nil {
			return err
		}
	}
	return nil
}

func imgRange(data []float32) (min, max float32) {
	min, max = data[0], data[0]
	for _, v := range data {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}
