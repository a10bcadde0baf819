package domain

// StorageUsage представляет сводку по занятому пространству пользователя.
// Считается только по активным (не удалённым в корзину) файлам.
type StorageUsage struct {
	UsedBytes  int64   `json:"used_bytes"`
	LimitBytes int64   `json:"limit_bytes"`
	Percentage float64 `json:"percentage"`
}
