//go:build !linux

package organizer

func renameNoReplace(source, target string) error {
	return renameChecked(source, target)
}
