package utils

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

const logFlags = log.Ldate | log.Ltime

var (
	InfoLogger  = log.New(os.Stdout, "INFO: ", logFlags)
	ErrorLogger = log.New(os.Stderr, "ERROR: ", logFlags)
	DebugLogger = log.New(io.Discard, "DEBUG: ", logFlags)
)

// InitLoggers дублирует логи в файлы info.log, error.log и debug.log в каталоге dir.
// Пустой dir оставляет вывод только в консоль.
func InitLoggers(dir string) error {
	if dir == "" {
		return nil
	}

	// Создаем директорию для логов, если она не существует
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	infoFile, err := openLogFile(dir, "info.log")
	if err != nil {
		return err
	}
	errorFile, err := openLogFile(dir, "error.log")
	if err != nil {
		return err
	}
	debugFile, err := openLogFile(dir, "debug.log")
	if err != nil {
		return err
	}

	InfoLogger.SetOutput(io.MultiWriter(os.Stdout, infoFile))
	ErrorLogger.SetOutput(io.MultiWriter(os.Stderr, errorFile))
	DebugLogger.SetOutput(debugFile)
	return nil
}

func openLogFile(dir, name string) (*os.File, error) {
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", name, err)
	}
	return f, nil
}

// LogInfo логирует информационное сообщение
func LogInfo(format string, v ...interface{}) {
	InfoLogger.Printf("%s - %s", caller(), fmt.Sprintf(format, v...))
}

// LogError логирует сообщение об ошибке
func LogError(format string, v ...interface{}) {
	ErrorLogger.Printf("%s - %s", caller(), fmt.Sprintf(format, v...))
}

// LogDebug логирует отладочное сообщение
func LogDebug(format string, v ...interface{}) {
	DebugLogger.Printf("%s - %s", caller(), fmt.Sprintf(format, v...))
}

// LogOperation логирует операцию с длительностью и записывает ее в метрики
func LogOperation(operation string, startTime time.Time, err error) {
	duration := time.Since(startTime)
	GetMetrics().RecordOperation(operation, err)
	if err != nil {
		ErrorLogger.Printf("%s - Operation %s failed after %v: %v", caller(), operation, duration, err)
	} else {
		InfoLogger.Printf("%s - Operation %s completed in %v", caller(), operation, duration)
	}
}

// LogRejection логирует операцию, отклоненную по правилам предметной области
func LogRejection(operation string, startTime time.Time, reason error) {
	duration := time.Since(startTime)
	GetMetrics().RecordRejection(operation)
	InfoLogger.Printf("%s - Operation %s rejected after %v: %v", caller(), operation, duration, reason)
}

// caller возвращает file:line кода, вызвавшего функцию логирования
func caller() string {
	_, file, line, ok := runtime.Caller(2)
	if !ok {
		return "???"
	}
	return fmt.Sprintf("%s:%d", filepath.Base(file), line)
}
