package util

const (
	DateFormat = "2006-01-02"
	TimeFormat = "2006-01-02 15:04:05"
)

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

// 文件上传相关常量
const (
	MimeVideo       = "video/"
	MimeImage       = "image/"
	MimePDF         = "application/pdf"
	MimeOctetStream = "application/octet-stream"
)

// DocumentMimeTypes 可以在批注层中打开的文档类型
var DocumentMimeTypes = []string{MimeImage, MimePDF}

// UploadMimeTypes 上传接口允许的类型
var UploadMimeTypes = []string{MimeImage, MimePDF, MimeVideo}
