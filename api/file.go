package api

// FileData 文件内容
type FileData struct {
	FileID   string `json:"file_id"`
	FileName string `json:"file_name"`
	Content  []byte `json:"content"`
}

// PutFileReq 上传文件
type PutFileReq struct {
	BaseReq
	FileName string `json:"file_name"`
	Content  []byte `json:"content"`
}

// PutFileResp 上传结果
type PutFileResp struct {
	BaseResp
	FileID string `json:"file_id"`
}

// GetFileReq 下载单个文件
type GetFileReq struct {
	BaseReq
	FileID string `json:"file_id"`
}

// GetFileResp 文件内容
type GetFileResp struct {
	BaseResp
	File *FileData `json:"file,omitempty"`
}

// GetMultiFileReq 批量下载文件
type GetMultiFileReq struct {
	BaseReq
	FileIDs []string `json:"file_ids"`
}

// GetMultiFileResp 批量文件内容，按 file_id 索引
type GetMultiFileResp struct {
	BaseResp
	Files map[string]*FileData `json:"files,omitempty"`
}

// 文件服务方法名
const (
	MethodPutFile      = "FileService.PutFile"
	MethodGetFile      = "FileService.GetFile"
	MethodGetMultiFile = "FileService.GetMultiFile"
)
