package backup

// CheckDiskSpace verifies the filesystem holding dir has enough free space
// for a backup run to start.
func CheckDiskSpace(dir string) error {
	return checkDiskSpaceImpl(dir)
}
