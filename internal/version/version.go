package version

// Version is stamped by the release workflow; "dev" otherwise.
var Version = "dev"
