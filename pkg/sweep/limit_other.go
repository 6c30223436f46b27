//go:build !linux && !darwin

package sweep

// maxOpenProbes reports no descriptor cap on this platform
func maxOpenProbes() int {
	return 0
}
