package emulators

// ImageContainer describes a docker image used as a local stand-in for a service.
type ImageContainer struct {
	EmulatorImage    string
	EmulatorHTTPPort string
	EmulatorGRPCPort string
}

// GCImageContainer is an ImageContainer for a Google Cloud emulator.
type GCImageContainer struct {
	ImageContainer
	ProjectID       string
	SetEnvVariables bool
}

// EmulatorConnection is the address a started container can be reached on.
type EmulatorConnection struct {
	EmulatorAddress string
}
