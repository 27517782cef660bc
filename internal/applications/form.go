package applications

import (
	"bytes"
	"io"
	"net/mail"
	"strings"

	"jobboard/internal/apperror"
)

const pdfContentType = "application/pdf"

// Form 是求职者填写的投递表单。
type Form struct {
	FullName string
	Email    string
	Phone    string
}

// Resume 是随投递上传的简历文件。
type Resume struct {
	Name        string
	Size        int64
	ContentType string
	Body        io.Reader
}

// Validate 检查必填项与邮箱格式。
func (f Form) Validate() error {
	if strings.TrimSpace(f.FullName) == "" {
		return apperror.Validation("full_name", "is required")
	}
	if strings.TrimSpace(f.Email) == "" {
		return apperror.Validation("email", "is required")
	}
	if _, err := mail.ParseAddress(strings.TrimSpace(f.Email)); err != nil {
		return apperror.Validation("email", "is not a valid address")
	}
	if strings.TrimSpace(f.Phone) == "" {
		return apperror.Validation("phone", "is required")
	}
	return nil
}

// validateResume 只接受 PDF，并限制大小；maxBytes 为 0 表示不限制。
func validateResume(r *Resume, maxBytes int64) error {
	if r == nil || r.Body == nil {
		return apperror.Validation("resume", "Please upload your resume (PDF).")
	}
	if !strings.EqualFold(strings.TrimSpace(r.ContentType), pdfContentType) {
		return apperror.Validation("resume", "Please upload a PDF file only.")
	}
	if r.Size <= 0 {
		return apperror.Validation("resume", "resume file is empty")
	}
	if maxBytes > 0 && r.Size > maxBytes {
		return apperror.Validation("resume", "resume exceeds %d bytes", maxBytes)
	}
	return nil
}

// sniffPDF 读取文件头确认是 PDF，并返回可继续完整读取的 Reader。
func sniffPDF(body io.Reader) (io.Reader, error) {
	head := make([]byte, 5)
	n, err := io.ReadFull(body, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, err
	}
	head = head[:n]
	if !bytes.Equal(head, []byte("%PDF-")) {
		return nil, apperror.Validation("resume", "Please upload a PDF file only.")
	}
	return io.MultiReader(bytes.NewReader(head), body), nil
}
