package services

// 実行を許可する「ロック」とみなすリアクションの組
// 単発の誤リアクションで発火しないように2種類の両方を要求する
const (
	LockReactionRocket = "rocket"
	LockReactionHooray = "hooray"
)

// 指示コメントがロック済みかどうかを判定する関数
// リアクションの取得順には依存しない
func HasLockReactions(reactions []string) bool {
	hasRocket := false
	hasHooray := false

	for _, r := range reactions {
		switch r {
		case LockReactionRocket:
			hasRocket = true
		case LockReactionHooray:
			hasHooray = true
		}
	}

	return hasRocket && hasHooray
}
