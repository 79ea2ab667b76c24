package config

const (
	defaultWorkDir              = "~/.local/share/duatanim"
	defaultCatalogPath          = "~/.config/duatanim/catalog.json"
	defaultRemoteBaseURL        = "https://www.mixamo.com"
	defaultElementTimeout       = 20
	defaultLoginTimeout         = 90
	defaultDownloadTimeout      = 120
	defaultPollInterval         = 2
	defaultItemDelaySeconds     = 3
	defaultPrimaryCommand       = "FBX2glTF --binary --input {input} --output {output}"
	defaultPrimaryTimeout       = 300
	defaultConverterWorkers     = 1
	defaultOutputFormat         = "glb"
	defaultAcquisitionThreshold = 0.8
	defaultMinFreeDiskMiB       = 512
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:     defaultWorkDir,
			CatalogPath: defaultCatalogPath,
		},
		Remote: Remote{
			BaseURL:          defaultRemoteBaseURL,
			Headless:         true,
			ElementTimeout:   defaultElementTimeout,
			LoginTimeout:     defaultLoginTimeout,
			DownloadTimeout:  defaultDownloadTimeout,
			PollInterval:     defaultPollInterval,
			ItemDelaySeconds: defaultItemDelaySeconds,
			Selectors: Selectors{
				LoginEmail:      "input[type=email]",
				LoginPassword:   "input[type=password]",
				LoginSubmit:     "button[type=submit]",
				LoggedIn:        ".product-browser",
				SearchInput:     "input[type=search]",
				SearchResult:    ".product-list .product",
				DownloadButton:  "button.btn-primary.download",
				FormatSelect:    "select[name=format]",
				SkinSelect:      "select[name=skin]",
				FPSSelect:       "select[name=fps]",
				ConfirmDownload: ".modal-footer button.btn-primary",
			},
		},
		Converter: Converter{
			PrimaryCommand:  defaultPrimaryCommand,
			PrimaryTimeout:  defaultPrimaryTimeout,
			FallbackEnabled: true,
			OutputFormat:    defaultOutputFormat,
			Workers:         defaultConverterWorkers,
		},
		Pipeline: Pipeline{
			AcquisitionThreshold: defaultAcquisitionThreshold,
			MinFreeDiskMiB:       defaultMinFreeDiskMiB,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
