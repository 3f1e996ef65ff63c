package model

// Dog はユーザーサービスが保持する犬のレコードを表す。
type Dog struct {
	ID                      int64  `json:"id"`
	OwnerID                 int64  `json:"owner_id"`
	Name                    string `json:"name"`
	Breed                   string `json:"breed"`
	Age                     int    `json:"age"`
	Size                    string `json:"size"`
	Temperament             string `json:"temperament"`
	EnergyLevel             string `json:"energy_level"`
	IsFriendlyWithOtherDogs bool   `json:"is_friendly_with_other_dogs"`
	IsFriendlyWithChildren  bool   `json:"is_friendly_with_children"`
	SpecialNeeds            string `json:"special_needs,omitempty"`
}

// PetView はフロントエンド向けのペット表示形式。
// 上流のDogレコードを画面契約に合わせて整形したもの。
type PetView struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Breed       string `json:"breed"`
	Age         int    `json:"age"`
	Size        string `json:"size"`
	Temperament string `json:"temperament"`
	EnergyLevel string `json:"energy_level"`
}

// PetViewFromDog はDogをPetViewに変換する。
// 欠損フィールドには表示用デフォルトを補う。
func PetViewFromDog(d Dog) PetView {
	breed := d.Breed
	if breed == "" {
		breed = "Mixed breed"
	}
	size := d.Size
	if size == "" {
		size = "medium"
	}
	energy := d.EnergyLevel
	if energy == "" {
		energy = "medium"
	}
	return PetView{
		ID:          d.ID,
		Name:        d.Name,
		Type:        "dog",
		Breed:       breed,
		Age:         d.Age,
		Size:        size,
		Temperament: d.Temperament,
		EnergyLevel: energy,
	}
}

// WalkerView はウォーカー検索結果の表示形式。
// 表示価格と空き状況はBFF側で付与する固定値であり、上流には存在しない。
type WalkerView struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	Rating       float64 `json:"rating"`
	Reviews      int     `json:"reviews"`
	Location     string  `json:"location"`
	Bio          string  `json:"bio"`
	Price        int     `json:"price"`
	Availability string  `json:"availability"`
}

// BreedStat は犬種ごとの頭数集計。
type BreedStat struct {
	Breed string `json:"breed"`
	Count int    `json:"count"`
}

// SizeStat はサイズごとの頭数集計。
type SizeStat struct {
	Size  string `json:"size"`
	Count int    `json:"count"`
}

// StatsSnapshot はトップページ向けの集計スナップショット。
// 上流への複数回の問い合わせ結果をマージしたもので、キャッシュしない。
type StatsSnapshot struct {
	TotalUsers int         `json:"totalUsers"`
	TotalDogs  int         `json:"totalDogs"`
	Owners     int         `json:"owners"`
	Walkers    int         `json:"walkers"`
	Breeds     []BreedStat `json:"breeds"`
	Sizes      []SizeStat  `json:"sizes"`
}
