package errno

// code=0 请求成功
// code=4xx 客户端请求错误
// code=5xx 服务器端错误
// code=2xxxx 业务处理错误码

type Errno struct {
	Code    int
	Message string
}

// Error 实现error接口
func (e *Errno) Error() string {
	return e.Message
}

var (
	OK = &Errno{Code: 200, Message: "Success"}

	ErrParameterInvalid = &Errno{Code: 400, Message: "Invalid parameter %s"}
	ErrInvalidParam     = &Errno{Code: 400, Message: "Invalid parameter"}
	ErrUnauthorized     = &Errno{Code: 401, Message: "Unauthorized"}
	ErrAccessDenied     = &Errno{Code: 403, Message: "Access denied"}
	ErrNotFound         = &Errno{Code: 404, Message: "Not found"}

	ErrInternalServer = &Errno{Code: 500, Message: "Internal server error"}
	ErrDatabase       = &Errno{Code: 501, Message: "Database error"}
	ErrUnknown        = &Errno{Code: 510, Message: "Unknown error"}

	// 上传会话错误码
	ErrMissingParam          = &Errno{Code: 20001, Message: "Missing required parameter"}
	ErrFileNameIllegal       = &Errno{Code: 20002, Message: "File name is illegal"}
	ErrFileSizeIllegal       = &Errno{Code: 20003, Message: "File size is illegal"}
	ErrMimeTypeNotAllowed    = &Errno{Code: 20004, Message: "File type is not allowed"}
	ErrChunkSizeIllegal      = &Errno{Code: 20005, Message: "Chunk size is out of range"}
	ErrChunkNumberIllegal    = &Errno{Code: 20006, Message: "Chunk number is out of range"}
	ErrChunkDataMismatch     = &Errno{Code: 20007, Message: "Chunk data does not match expected size"}
	ErrChunkHashMismatch     = &Errno{Code: 20008, Message: "Chunk hash verification failed"}
	ErrUploadSessionNotFound = &Errno{Code: 20009, Message: "Upload session not found"}
	ErrUploadSessionExpired  = &Errno{Code: 20010, Message: "Upload session has expired"}
	ErrUploadSessionClosed   = &Errno{Code: 20011, Message: "Upload session is not accepting chunks"}
	ErrChunkIncomplete       = &Errno{Code: 20012, Message: "Chunk set is incomplete"}
	ErrFileHashMismatch      = &Errno{Code: 20013, Message: "Assembled file hash verification failed"}
	ErrUserUUIDRequired      = &Errno{Code: 20014, Message: "User UUID is required"}
	ErrSessionUUIDRequired   = &Errno{Code: 20015, Message: "Session UUID is required"}
	ErrUploadOriginInvalid   = &Errno{Code: 20016, Message: "Upload origin is invalid"}

	// 合并会话错误码
	ErrMergeSessionNotFound = &Errno{Code: 20031, Message: "Merge session not found"}
	ErrMergeSessionExists   = &Errno{Code: 20032, Message: "Merge session already exists"}
	ErrMergeNotReady        = &Errno{Code: 20033, Message: "Merge session videos are not ready"}
	ErrInvalidMergeStatus   = &Errno{Code: 20034, Message: "Invalid merge session status"}
	ErrVideoCountIllegal    = &Errno{Code: 20035, Message: "Video count is illegal"}
	ErrVideoIndexIllegal    = &Errno{Code: 20036, Message: "Video index is out of range"}
	ErrQueueFull            = &Errno{Code: 20037, Message: "Merge queue is full"}
	ErrWorkerNotAvailable   = &Errno{Code: 20038, Message: "No worker available"}

	// 合并管线阶段错误码，失败阶段写入会话error_code
	ErrAnalysisFailed = &Errno{Code: 20041, Message: "ANALYSIS_FAILED"}
	ErrPrepareFailed  = &Errno{Code: 20042, Message: "PREPARE_FAILED"}
	ErrConcatFailed   = &Errno{Code: 20043, Message: "CONCAT_FAILED"}
	ErrCompressFailed = &Errno{Code: 20044, Message: "COMPRESS_FAILED"}
	ErrPublishFailed  = &Errno{Code: 20045, Message: "PUBLISH_FAILED"}
)
