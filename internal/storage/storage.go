// storage.go
package storage

import "context"

// Storage определяет интерфейс физического хранилища файлов и каталогов.
// Пути логические ("uploads/Reports/2024"), реализация сама решает,
// как отобразить их на ключи объектов.
type Storage interface {
	// Exists проверяет наличие объекта или каталога по пути
	Exists(ctx context.Context, path string) (bool, error)
	// Read возвращает содержимое объекта
	Read(ctx context.Context, path string) ([]byte, error)
	// Write сохраняет данные под именем filename в каталоге dir
	// и возвращает итоговый путь объекта
	Write(ctx context.Context, dir, filename string, data []byte) (string, error)
	// Delete удаляет объект; отсутствующий объект ошибкой не считается
	Delete(ctx context.Context, path string) error
	// Move переносит объект или каталог со всем содержимым
	Move(ctx context.Context, oldPath, newPath string) error
	// MakeDirectory создает каталог; существующий каталог ошибкой не считается
	MakeDirectory(ctx context.Context, path string) error
	// DeleteDirectory удаляет каталог вместе со всем содержимым
	DeleteDirectory(ctx context.Context, path string) error
}
