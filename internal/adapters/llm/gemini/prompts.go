package gemini

import "fmt"

const readingPrompt = `Agis comme un mystique expert en Tarot.
Tire une carte de Tarot aléatoire (Majeure ou Mineure) pour l'utilisateur.
Génère une réponse structurée en JSON contenant :
1. Le nom de la carte (en Français).
2. Une description visuelle courte mais évocatrice de la carte (pour générer une image ensuite).
3. La signification générale.
4. Un message spirituel personnel et profond pour l'utilisateur aujourd'hui.`

func imagePrompt(name, description string) string {
	return fmt.Sprintf("Une carte de tarot artistique et mystique représentant: %s. %s. "+
		"Style détaillé, spirituel, onirique, haute résolution, format carte de tarot.", name, description)
}

func editPrompt(instruction string) string {
	return fmt.Sprintf("Modifie cette image de carte de tarot selon l'instruction suivante : \"%s\". "+
		"Garde la composition générale d'une carte de tarot mais applique le changement de style ou de contenu demandé.", instruction)
}
