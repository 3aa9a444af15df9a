package repository

import "context"

// 画像などの外部アセット保存先。
type AssetStore interface {
	//保存してアセット参照（不透明なID）を返す。失敗は上流エラー。
	Upload(ctx context.Context, data []byte, contentType string) (string, error)

	//アセット参照を取得可能なURLにする
	URL(ctx context.Context, ref string) (string, error)
}
