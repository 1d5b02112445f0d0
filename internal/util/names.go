package util

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
)

var defaultRNG = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))

// FrenchNameProbability is the share of generated names drawn from the
// French lists.
const FrenchNameProbability = 0.20

// nameSet is one language's first and last names.
type nameSet struct {
	male, female, last []string
}

var (
	english = nameSet{
		male: []string{
			"James", "John", "Robert", "Michael", "William", "David", "Richard", "Joseph",
			"Thomas", "Charles", "Daniel", "Matthew", "Anthony", "Mark", "Steven", "Paul",
			"Andrew", "Kevin", "Brian", "George", "Edward", "Ryan", "Jacob", "Eric",
			"Samuel", "Henry", "Peter", "Owen", "Ian", "Noah",
		},
		female: []string{
			"Mary", "Patricia", "Jennifer", "Linda", "Elizabeth", "Susan", "Jessica", "Sarah",
			"Karen", "Nancy", "Margaret", "Emily", "Michelle", "Laura", "Amy", "Anna",
			"Emma", "Helen", "Rachel", "Julia", "Grace", "Olivia", "Victoria", "Alice",
			"Hannah", "Sophia", "Charlotte", "Lily", "Zoe", "Hazel",
		},
		last: []string{
			"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia", "Miller", "Davis",
			"Wilson", "Anderson", "Taylor", "Moore", "Jackson", "White", "Harris", "Clark",
			"Lewis", "Walker", "Young", "Allen", "King", "Wright", "Hill", "Green",
			"Adams", "Baker", "Carter", "Evans", "Turner", "Parker", "Collins", "Murphy",
			"Cooper", "Reed", "Ward", "Watson", "Brooks", "Bennett", "Gray", "Hughes",
		},
	}
	french = nameSet{
		male: []string{
			"Jean", "Pierre", "Michel", "André", "Philippe", "Alain", "François", "Olivier",
			"Stéphane", "Éric", "Julien", "Sébastien", "Antoine", "Raphaël", "Benoît", "Hervé",
			"Jérôme", "Frédéric", "Rémi", "Cédric",
		},
		female: []string{
			"Marie", "Nathalie", "Isabelle", "Françoise", "Valérie", "Sophie", "Céline", "Aurélie",
			"Émilie", "Claire", "Léa", "Chloé", "Zoé", "Hélène", "Véronique", "Élodie",
			"Anaïs", "Océane", "Inès", "Clémence",
		},
		last: []string{
			"Martin", "Bernard", "Dubois", "Petit", "Durand", "Leroy", "Moreau", "Lefebvre",
			"Roux", "Fournier", "Girard", "Mercier", "Dupont", "Bonnet", "Rousseau", "Blanc",
			"Guérin", "Chevalier", "Lemaire", "Gautier",
		},
	}
)

func pick(rng *rand.Rand, s []string) string { return s[rng.IntN(len(s))] }

func orDefault(rng *rand.Rand) *rand.Rand {
	if rng == nil {
		return defaultRNG
	}
	return rng
}

// GeneratePatientName returns a "LAST^FIRST" person name. sex is "M" or
// "F"; anything else draws a female first name.
func GeneratePatientName(sex string, rng *rand.Rand) string {
	rng = orDefault(rng)
	set := english
	if rng.Float64() < FrenchNameProbability {
		set = french
	}
	first := set.female
	if sex == "M" {
		first = set.male
	}
	return pick(rng, set.last) + "^" + pick(rng, first)
}

// GeneratePhysicianName returns a person name with a "Dr" prefix component.
func GeneratePhysicianName(rng *rand.Rand) string {
	rng = orDefault(rng)
	sex := "F"
	if rng.IntN(2) == 0 {
		sex = "M"
	}
	return GeneratePatientName(sex, rng) + "^^Dr"
}

// Institution is the site a study was acquired at.
type Institution struct {
	Name       string
	Department string
}

var (
	institutions = []string{
		"Saint Mary General Hospital", "Riverside Medical Center", "Hôpital Lariboisière",
		"Northgate Imaging Clinic", "University Hospital of Lyon", "Lakeside Community Hospital",
		"Clinique du Parc", "Mercy Regional Medical Center",
	}
	// Departments are the department names institutions are given.
	Departments = []string{"Radiology", "Neuroradiology", "Emergency", "Oncology", "Cardiology", "Orthopedics"}
)

// GenerateInstitution picks an institution and department.
func GenerateInstitution(rng *rand.Rand) Institution {
	rng = orDefault(rng)
	return Institution{Name: pick(rng, institutions), Department: pick(rng, Departments)}
}

var bodyParts = map[string][]string{
	"MR": {"HEAD", "BRAIN", "SPINE", "KNEE", "SHOULDER", "PELVIS"},
	"CT": {"HEAD", "CHEST", "ABDOMEN", "PELVIS", "SPINE"},
	"CR": {"CHEST", "HAND", "FOOT", "KNEE", "PELVIS"},
	"DX": {"CHEST", "HAND", "WRIST", "SPINE", "ANKLE"},
	"MG": {"BREAST"},
	"US": {"ABDOMEN", "THYROID", "LIVER", "KIDNEY", "PELVIS"},
}

// GenerateBodyPart picks a BodyPartExamined value plausible for modality.
func GenerateBodyPart(modality string, rng *rand.Rand) string {
	rng = orDefault(rng)
	parts, ok := bodyParts[modality]
	if !ok {
		parts = bodyParts["MR"]
	}
	return pick(rng, parts)
}

// GenerateStationName returns a station name such as "CT_CHEST_02".
func GenerateStationName(modality, bodyPart string, rng *rand.Rand) string {
	rng = orDefault(rng)
	return fmt.Sprintf("%s_%s_%02d", modality, bodyPart, rng.IntN(20)+1)
}

// GenerateProtocolName returns a protocol name such as "MR BRAIN ROUTINE".
func GenerateProtocolName(modality, bodyPart string, rng *rand.Rand) string {
	rng = orDefault(rng)
	kinds := []string{"ROUTINE", "STANDARD", "FOLLOW-UP", "W/O CONTRAST", "W CONTRAST"}
	return strings.Join([]string{modality, bodyPart, pick(rng, kinds)}, " ")
}

// GenerateClinicalIndication returns a RequestedProcedureDescription.
func GenerateClinicalIndication(modality, bodyPart string, rng *rand.Rand) string {
	rng = orDefault(rng)
	reasons := []string{"pain", "trauma", "follow-up", "screening", "suspected lesion", "pre-operative assessment"}
	return fmt.Sprintf("%s %s, %s", modality, strings.ToLower(bodyPart), pick(rng, reasons))
}
