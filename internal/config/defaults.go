package config

const (
	defaultLogDir             = "~/.local/share/darkroom/logs"
	defaultMaxPhotos          = 200
	defaultWindowMinutes      = 60
	defaultBackupFolderName   = "_backup"
	defaultErrorFolderName    = "_error"
	defaultDoneFolderName     = "_done"
	defaultSettleSeconds      = 2
	defaultPollMillis         = 500
	defaultStartupScanMinutes = 30
	defaultPatientIDPrefix    = "PATIENT_ID:"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

func defaultSupportedFormats() []string {
	return []string{".jpg", ".jpeg", ".png", ".gif", ".bmp"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir: defaultLogDir,
		},
		Session: Session{
			MaxPhotos:        defaultMaxPhotos,
			WindowMinutes:    defaultWindowMinutes,
			BackupFolderName: defaultBackupFolderName,
			ErrorFolderName:  defaultErrorFolderName,
			DoneFolderName:   defaultDoneFolderName,
			SupportedFormats: defaultSupportedFormats(),
		},
		Watcher: Watcher{
			SettleSeconds:      defaultSettleSeconds,
			PollMillis:         defaultPollMillis,
			StartupScanMinutes: defaultStartupScanMinutes,
		},
		Trigger: Trigger{
			PatientIDPrefix: defaultPatientIDPrefix,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
