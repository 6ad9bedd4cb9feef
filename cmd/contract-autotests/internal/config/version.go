package config

var (
	// Version is the contract-autotests version number, which is injected during build time.
	Version = "0.0.0"

	// CommitHash is the contract-autotests git commit hash, which is injected during build time.
	CommitHash = ""

	// BuildTimestamp is the timestamp at which the contract-autotests was built, injected during build time.
	BuildTimestamp = ""

	// Branch is the git branch from which the contract-autotests was built, injected during build time.
	Branch = ""
)
