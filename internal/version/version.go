package version

// Version is the current version of the engage CLI.
// This value can be overridden at build time using:
//   go build -ldflags="-X 'github.com/SanikaMane4142/engage-classroomm-55/internal/version.Version=v1.0.0'"
var Version = "dev"
