// Package web holds the page served by the monitoring server.
package web

import (
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"os"
)

//go:embed dist/*
var staticAssets embed.FS

// DevDirEnv names the environment variable that, when set to a directory,
// makes the server read the page from disk instead of the embedded copy.
const DevDirEnv = "JOSKERN_MONITOR_DEV"

// GetAssets returns the static assets.
func GetAssets() http.FileSystem {
	if dir, ok := os.LookupEnv(DevDirEnv); ok && dir != "" {
		fmt.Fprintf(os.Stderr,
			"In monitoring page development mode, serving assets from %s\n", dir)

		return http.Dir(dir)
	}

	subFS, err := fs.Sub(staticAssets, "dist")
	if err != nil {
		panic(err)
	}

	return http.FS(subFS)
}
