package services

type ReportCategory struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Group string `json:"group"`
}

type CategoryGroup struct {
	Key        string           `json:"key"`
	Label      string           `json:"label"`
	Categories []ReportCategory `json:"categories"`
}

var reportGroups = []CategoryGroup{
	{Key: "infrastructure", Label: "Zgłoszenie usterek infrastruktury", Categories: []ReportCategory{
		{Key: "dziura_w_jezdni", Label: "Dziura w jezdni"},
		{Key: "uszkodzone_chodniki", Label: "Uszkodzone chodniki"},
		{Key: "znaki_drogowe", Label: "Brakujące lub zniszczone znaki drogowe"},
		{Key: "oswietlenie", Label: "Awarie oświetlenia ulicznego"},
	}},
	{Key: "safety", Label: "Porządek i bezpieczeństwo", Categories: []ReportCategory{
		{Key: "dzikie_wysypisko", Label: "Dzikie wysypisko śmieci"},
		{Key: "przepelniony_kosz", Label: "Przepełniony kosz na śmieci"},
		{Key: "graffiti", Label: "Graffiti"},
		{Key: "sliski_chodnik", Label: "Śliski chodnik"},
	}},
	{Key: "greenery", Label: "Zieleń miejska", Categories: []ReportCategory{
		{Key: "nasadzenie_drzew", Label: "Potrzeba nasadzenia drzew"},
		{Key: "nieprzycięta_gałąź", Label: "Nieprzycięta gałąź zagrażająca niebezpieczeństwu"},
	}},
	{Key: "transport", Label: "Transport i komunikacja", Categories: []ReportCategory{
		{Key: "brak_przejscia", Label: "Brak przejścia dla pieszych"},
		{Key: "przystanek_autobusowy", Label: "Potrzeba przystanku autobusowego"},
		{Key: "organizacja_ruchu", Label: "Problem z organizacją ruchu"},
		{Key: "korki", Label: "Powtarzające się korki"},
	}},
	{Key: "initiatives", Label: "Inicjatywy społeczne", Categories: []ReportCategory{
		{Key: "mala_infrastruktura", Label: "Propozycja nowych obiektów małej infrastruktury"},
	}},
}

var reportCategoryIndex = func() map[string]ReportCategory {
	index := map[string]ReportCategory{}
	for _, group := range reportGroups {
		for _, category := range group.Categories {
			category.Group = group.Key
			index[category.Key] = category
		}
	}
	return index
}()

func ReportCategoryGroups() []CategoryGroup {
	out := make([]CategoryGroup, 0, len(reportGroups))
	for _, group := range reportGroups {
		items := make([]ReportCategory, 0, len(group.Categories))
		for _, category := range group.Categories {
			category.Group = group.Key
			items = append(items, category)
		}
		out = append(out, CategoryGroup{Key: group.Key, Label: group.Label, Categories: items})
	}
	return out
}

func IsReportCategory(key string) bool {
	_, ok := reportCategoryIndex[key]
	return ok
}
