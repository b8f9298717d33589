//go:build windows

package remindctl

import "os"

func checkExecutable(path string) error {
	_, err := os.Stat(path)
	return err
}
