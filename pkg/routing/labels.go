package routing

import (
	"strings"

	"golang.org/x/text/language"
)

var profileLabels = map[Language]map[Profile]string{
	German: {
		Car:     "Auto",
		Bicycle: "Fahrrad",
		Walking: "Zu Fuß",
	},
	French: {
		Car:     "Voiture",
		Bicycle: "Vélo",
		Walking: "À pied",
	},
	Spanish: {
		Car:     "Coche",
		Bicycle: "Bicicleta",
		Walking: "A pie",
	},
}

// LabelFor returns the display label of p for the given locale. Locales
// without a translation get the capitalized profile name.
func LabelFor(p Profile, tag language.Tag) string {
	if labels, ok := profileLabels[LanguageFor(tag)]; ok {
		if label, ok := labels[p]; ok {
			return label
		}
	}

	name := p.String()
	return strings.ToUpper(name[:1]) + strings.ToLower(name[1:])
}
