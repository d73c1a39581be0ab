package repo

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"technotes-api/internal/domain"
)

// translate 把驱动层约束错误归一到 domain 哨兵错误
func translate(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case isDupKey(err):
		return fmt.Errorf("%s: %w: %v", op, domain.ErrDuplicateKey, err)
	case isForeignKey(err):
		return fmt.Errorf("%s: %w: %v", op, domain.ErrForeignKey, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func isDupKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// 未开启 TranslateError 的连接兜底
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "unique violation")
}

func isForeignKey(err error) bool {
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "foreign key")
}
