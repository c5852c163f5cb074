//go:build windows

package settings

func removeBacking(string) {}
