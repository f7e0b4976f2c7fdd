package processor

import (
	"nitrado-deploy/models"

	"github.com/charmbracelet/log"
)

// CompareFiles pairs local and remote files by name and returns the ones whose
// local copy is strictly newer. Only the first remote entry with a matching name
// is considered; files present on one side only are ignored.
func CompareFiles(local, remote []models.FileRecord) []models.ModifiedFile {
	log.Info("Compare modified date of local and remote files...")

	var modified []models.ModifiedFile
	for _, localFile := range local {
		for _, remoteFile := range remote {
			if remoteFile.Name != localFile.Name {
				continue
			}
			if localFile.ModifiedAt.After(remoteFile.ModifiedAt) {
				log.Debug("File is newer locally", "name", localFile.Name,
					"local", localFile.ModifiedAt, "remote", remoteFile.ModifiedAt)
				modified = append(modified, models.ModifiedFile{
					LocalPath:        localFile.Path,
					RemotePath:       remoteFile.Path,
					Name:             localFile.Name,
					LocalModifiedAt:  localFile.ModifiedAt,
					RemoteModifiedAt: remoteFile.ModifiedAt,
				})
			}
			break
		}
	}

	log.Infof("Found %d modified files", len(modified))
	return modified
}
