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

// Package restapi exposes source extraction over HTTP: a gin router with a
// health check and a POST endpoint that accepts a raw float32 image plane
// plus dimensions and extraction parameters, and returns the resulting
// catalog as JSON. The router setup and sandboxing helper are carried over
// from rest/serve.go -- gin.Default() and MakeSandbox's chroot/setuid pair
// -- generalized from serve.go's ops.OpSequence job payload to an
// extraction request/catalog response.
package restapi

import (
	"bytes"
	"fmt"
	"net/http"
	"os"
	"syscall"

	"github.com/gin-gonic/gin"

	sep "github.com/stellarforge/sep"
)

// ExtractionConfig is the server-wide default extraction configuration;
// a request may override Thresh and MinArea.
type ExtractionConfig struct {
	BW, BH         int32
	Thresh         float32
	MinArea        int32
	Conn8          bool
	DeblendNThresh int
	DeblendCont    float32
	Clean          bool
	CleanParam     float32
}

// ExtractRequest is the POST /api/v1/extract payload.
type ExtractRequest struct {
	Width   int32     `json:"width" binding:"required"`
	Height  int32     `json:"height" binding:"required"`
	Pixels  []float32 `json:"pixels" binding:"required"`
	Thresh  float32   `json:"thresh"`
	MinArea int32     `json:"minarea"`
}

// MakeSandbox secures the serving process by chrooting (requires root) and
// dropping to an unprivileged user id, mirroring rest/serve.go's
// MakeSandbox.
func MakeSandbox(chroot string, setuid int) {
	if len(chroot) > 0 {
		fmt.Printf("Changing filesystem root to %s...\n", chroot)
		if err := syscall.Chroot(chroot); err != nil {
			panic(fmt.Sprintf("error chroot(%s): %s\n", chroot, err.Error()))
		}
		if err := os.Chdir(chroot); err != nil {
			panic(fmt.Sprintf("error chdir(%s): %s\n", chroot, err.Error()))
		}
	}
	if setuid >= 0 {
		fmt.Printf("Setting user id from %d/%d to %d\n", syscall.Getuid(), syscall.Geteuid(), setuid)
		if err := syscall.Setuid(setuid); err != nil {
			panic(fmt.Sprintf("error setuid(%d): %s\n", setuid, err.Error()))
		}
	}
}

// Serve starts the HTTP API on the given port and blocks until it exits.
func Serve(port int, cfg ExtractionConfig) error {
	r := gin.Default()
	api := r.Group("/api")
	{
		v1 := api.Group("/v1")
		{
			v1.GET("/ping", getPing)
			v1.POST("/extract", postExtract(cfg))
		}
	}
	return r.Run(fmt.Sprintf(":%d", port))
}

func getPing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "pong"})
}

func postExtract(cfg ExtractionConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ExtractRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if int32(len(req.Pixels)) != req.Width*req.Height {
			c.JSON(http.StatusBadRequest, gin.H{"error": "pixels length does not match width*height"})
			return
		}

		thresh := cfg.Thresh
		if req.Thresh != 0 {
			thresh = req.Thresh
		}
		minarea := cfg.MinArea
		if req.MinArea != 0 {
			minarea = req.MinArea
		}

		buf := sep.NewFloat32Buffer(req.Pixels, req.Width, req.Height)
		bg, err := sep.MakeBackground(buf, sep.DefaultBackgroundConfig(cfg.BW, cfg.BH))
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		defer bg.Free()
		if err := bg.SubtractFromArray(req.Pixels); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		buf.GlobalRMS = bg.GlobalRMS()

		list, err := sep.Extract(buf, sep.ExtractConfig{
			Thresh: thresh, ThreshType: sep.ThreshRelative,
			MinArea: minarea, Conn8: cfg.Conn8,
			DeblendNThresh: cfg.DeblendNThresh, DeblendCont: cfg.DeblendCont,
			Clean: cfg.Clean, CleanParam: cfg.CleanParam,
		})
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}

		entries, err := sep.BuildCatalog(buf, list)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}

		var catalog bytes.Buffer
		if err := sep.WriteCatalog(&catalog, entries); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"thresh":  list.Thresh,
			"count":   len(list.Objects),
			"catalog": catalog.String(),
		})
	}
}
