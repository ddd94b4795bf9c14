package dashboard

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"
)

// dataURIPrefix 展示照片时统一使用的前缀，存储与传输只保留纯 base64。
const dataURIPrefix = "data:image/jpeg;base64,"

// StripDataURI 去掉任意 data:*;base64, 前缀，返回纯 base64 文本。
// 没有前缀时原样返回。
func StripDataURI(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "data:") {
		return s
	}
	if i := strings.Index(s, "base64,"); i >= 0 {
		return s[i+len("base64,"):]
	}
	return s
}

// DisplayDataURI 给纯 base64 照片补上展示用的 data-URI 前缀。
func DisplayDataURI(b64 string) string {
	b64 = strings.TrimSpace(b64)
	if b64 == "" {
		return ""
	}
	if strings.HasPrefix(b64, "data:") {
		return b64
	}
	return dataURIPrefix + b64
}

// CapturePhotoFile 读取本地照片文件并编码为纯 base64。
// 单个槽位的采集失败不影响另一个槽位，调用方按槽位处理错误。
func CapturePhotoFile(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("photo path is empty")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read photo: %w", err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("photo file is empty")
	}
	return base64.StdEncoding.EncodeToString(data), nil
}
