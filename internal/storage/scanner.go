package storage

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dutchcoders/go-clamd"
)

// ErrMalicious 表示上传的文件未通过病毒扫描。
var ErrMalicious = errors.New("malicious file detected")

// Scanner 在文件写入存储之前检查内容。
type Scanner interface {
	Scan(r io.Reader) error
}

// ClamdScanner 通过 clamd 的 INSTREAM 扫描文件。
type ClamdScanner struct {
	addr string
}

// NewScanner 返回 clamd 扫描器；地址为空时返回不做检查的扫描器。
func NewScanner(clamdAddr string) Scanner {
	clamdAddr = strings.TrimSpace(clamdAddr)
	if clamdAddr == "" {
		return NopScanner{}
	}
	return &ClamdScanner{addr: clamdAddr}
}

func (s *ClamdScanner) Scan(r io.Reader) error {
	client := clamd.NewClamd(s.addr)

	abortChan := make(chan bool)
	defer close(abortChan)

	scanChan, err := client.ScanStream(r, abortChan)
	if err != nil {
		return fmt.Errorf("scan file: %w", err)
	}

	var infected bool
	for result := range scanChan {
		switch result.Status {
		case clamd.RES_OK:
		case clamd.RES_FOUND:
			infected = true
		default:
			return fmt.Errorf("scan file: %s", result.Description)
		}
	}
	if infected {
		return ErrMalicious
	}
	return nil
}

// NopScanner 接受任何内容，用于未配置 clamd 的环境。
type NopScanner struct{}

func (NopScanner) Scan(io.Reader) error { return nil }
