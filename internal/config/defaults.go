package config

const (
	defaultLogDir               = "~/.local/share/atelier/logs"
	defaultStateDir             = "~/.local/share/atelier"
	defaultVersionsFolder       = "_versions"
	defaultPublishFolder        = "_published"
	defaultPreviewFolder        = "_preview"
	defaultState                = "WIP"
	defaultRestoredMarker       = "restored-v"
	defaultAutoIncrementTimeout = 120
	defaultMetadataBackend      = "sidecar"
	defaultSidecarName          = ".atelier-meta.yaml"
	defaultMetadataDBName       = "metadata.db"
	defaultProjectsFile         = "~/.config/atelier/projects.yaml"
	defaultFFmpegBinary         = "ffmpeg"
	defaultPreviewFramerate     = 24
	defaultPreviewCRF           = 25
	defaultPreviewPreset        = "ultrafast"
	defaultPreviewTimeout       = 600
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:   defaultLogDir,
			StateDir: defaultStateDir,
		},
		Naming: Naming{
			VersionsFolder: defaultVersionsFolder,
			PublishFolder:  defaultPublishFolder,
			PreviewFolder:  defaultPreviewFolder,
			DefaultState:   defaultState,
			RestoredMarker: defaultRestoredMarker,
		},
		Versions: Versions{
			AutoIncrementTimeout: defaultAutoIncrementTimeout,
			HashMirror:           true,
		},
		Metadata: Metadata{
			Backend:     defaultMetadataBackend,
			SidecarName: defaultSidecarName,
		},
		Registry: Registry{
			ProjectsFile: defaultProjectsFile,
		},
		Preview: Preview{
			FFmpegBinary: defaultFFmpegBinary,
			Framerate:    defaultPreviewFramerate,
			CRF:          defaultPreviewCRF,
			Preset:       defaultPreviewPreset,
			Timeout:      defaultPreviewTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
