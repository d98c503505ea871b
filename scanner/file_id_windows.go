//go:build windows
// +build windows

package scanner

import (
	"fmt"
	"os"

	"golang.org/x/sys/windows"
)

func getFileID(path string, info os.FileInfo) string {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return ""
	}
	h, err := windows.CreateFile(p, windows.GENERIC_READ,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE|windows.FILE_SHARE_DELETE,
		nil, windows.OPEN_EXISTING, windows.FILE_FLAG_BACKUP_SEMANTICS, 0)
	if err != nil {
		return ""
	}
	defer windows.CloseHandle(h)

	var data windows.ByHandleFileInformation
	if err := windows.GetFileInformationByHandle(h, &data); err != nil {
		return ""
	}
	return fmt.Sprintf("vol=%d,index=%d", data.VolumeSerialNumber,
		uint64(data.FileIndexHigh)<<32|uint64(data.FileIndexLow))
}
