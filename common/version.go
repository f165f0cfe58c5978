package common

// PackageName identifies this project in logs and metrics.
const PackageName = "encfs-deploy"

// Version is set at build time via -ldflags.
var Version = "dev"
