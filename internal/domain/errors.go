package domain

import "errors"

// Виды ошибок, которые возвращают сервисы. Проверяются через errors.Is,
// хендлеры отображают их в HTTP-статусы.
var (
	// ErrValidation - некорректные входные данные, повторять запрос бессмысленно
	ErrValidation = errors.New("validation failed")
	// ErrNotFound - ресурс не существует или находится в корзине
	ErrNotFound = errors.New("not found")
	// ErrForbidden - у пользователя нет прав на операцию
	ErrForbidden = errors.New("access denied")
	// ErrStorage - операция с физическим хранилищем не выполнилась
	ErrStorage = errors.New("storage operation failed")
	// ErrConflict - нарушение уникальности или попытка циклического перемещения
	ErrConflict = errors.New("conflict")
)
