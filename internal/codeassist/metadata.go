package codeassist

import (
	"fmt"
	"runtime"
)

// cliVersion is the Gemini CLI release we present as. Upstream gates some
// behavior on recognized client fingerprints.
const cliVersion = "0.1.5"

// userAgent mimics the Gemini CLI User-Agent format.
func userAgent() string {
	return fmt.Sprintf("GeminiCLI/%s (%s; %s)", cliVersion, runtime.GOOS, runtime.GOARCH)
}

// platformString maps the current OS and architecture onto the enum values
// the Code Assist API expects.
func platformString() string {
	switch runtime.GOOS {
	case "darwin":
		if runtime.GOARCH == "arm64" {
			return "DARWIN_ARM64"
		}
		return "DARWIN_AMD64"
	case "linux":
		if runtime.GOARCH == "arm64" {
			return "LINUX_ARM64"
		}
		return "LINUX_AMD64"
	case "windows":
		return "WINDOWS_AMD64"
	default:
		return "PLATFORM_UNSPECIFIED"
	}
}

// clientMetadata is attached to loadCodeAssist and onboardUser calls.
// duetProject is null when no project is bound yet.
func clientMetadata(projectID string) map[string]interface{} {
	meta := map[string]interface{}{
		"ideType":    "IDE_UNSPECIFIED",
		"platform":   platformString(),
		"pluginType": "GEMINI",
	}
	if projectID != "" {
		meta["duetProject"] = projectID
	} else {
		meta["duetProject"] = nil
	}
	return meta
}
