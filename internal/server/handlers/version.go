package handlers

import (
	"net/http"
	"runtime"

	"github.com/fulmenhq/gofulmen/appidentity"
	"github.com/fulmenhq/gofulmen/crucible"

	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/appid"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core"
	"github.com/Hajime-Tokyo-1213/genimage1108-sub000/internal/core/synth"
)

type buildInfo struct {
	version   string
	commit    string
	buildDate string
}

var (
	build       = buildInfo{version: "dev", commit: "unknown", buildDate: "unknown"}
	appIdentity *appidentity.Identity
)

// SetVersionInfo records ldflags build metadata.
func SetVersionInfo(version, commit, buildDate string) {
	build = buildInfo{version: version, commit: commit, buildDate: buildDate}
}

func SetAppIdentity(identity *appidentity.Identity) {
	appIdentity = identity
}

// VersionResponse is the /version body.
type VersionResponse struct {
	App          AppInfo     `json:"app"`
	Studio       StudioInfo  `json:"studio"`
	Dependencies DepInfo     `json:"dependencies"`
	Runtime      RuntimeInfo `json:"runtime"`
}

type AppInfo struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Commit    string `json:"git_commit"`
	BuildDate string `json:"build_date"`
}

// StudioInfo lists the modes clients may pass to the studio endpoints.
type StudioInfo struct {
	SynthesizerModes []string `json:"synthesizer_modes"`
	ImageModes       []string `json:"image_modes"`
}

type DepInfo struct {
	Gofulmen string `json:"gofulmen"`
	Crucible string `json:"crucible"`
}

type RuntimeInfo struct {
	GoVersion     string `json:"go_version"`
	Platform      string `json:"platform"`
	NumCPU        int    `json:"num_cpu"`
	NumGoroutines int    `json:"num_goroutines"`
}

func VersionHandler(w http.ResponseWriter, r *http.Request) {
	identity := appIdentity
	if identity == nil {
		identity = appid.Resolve(r.Context())
	}
	deps := crucible.GetVersion()

	writeJSON(w, http.StatusOK, VersionResponse{
		App: AppInfo{
			Name:      identity.BinaryName,
			Version:   build.version,
			Commit:    build.commit,
			BuildDate: build.buildDate,
		},
		Studio: StudioInfo{
			SynthesizerModes: []string{synth.ModeSimplified, synth.ModeRich},
			ImageModes:       []string{string(core.ImageModeNew), string(core.ImageModeEdit)},
		},
		Dependencies: DepInfo{Gofulmen: deps.Gofulmen, Crucible: deps.Crucible},
		Runtime: RuntimeInfo{
			GoVersion:     runtime.Version(),
			Platform:      runtime.GOOS + "/" + runtime.GOARCH,
			NumCPU:        runtime.NumCPU(),
			NumGoroutines: runtime.NumGoroutine(),
		},
	})
}
