// internal/game/questions.go
package game

// Question is one trivia prompt with its correct answer. Answers are only
// ever revealed to the host (judging) or to everyone after a timeout.
type Question struct {
	Text   string
	Answer string
}

// QuestionBank maps category names to their question pools.
type QuestionBank map[string][]Question

// Categories returns the bank's category names in a fixed order.
func (b QuestionBank) Categories() []string {
	names := make([]string, 0, len(b))
	for _, c := range categoryOrder {
		if _, ok := b[c]; ok {
			names = append(names, c)
		}
	}
	for c := range b {
		if !containsString(names, c) {
			names = append(names, c)
		}
	}
	return names
}

func containsString(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

var categoryOrder = []string{
	"Music & Pop Culture",
	"Movies & TV",
	"Sports",
	"General Knowledge",
	"Science & Medical",
	"Animals",
	"Geography",
}

// DefaultBank is the embedded question set used when no database is
// configured.
func DefaultBank() QuestionBank {
	return QuestionBank{
		"Music & Pop Culture": {
			{"Who sang 'Margaritaville' in 1977?", "Jimmy Buffett"},
			{"Which Beatle was the first to release a solo album?", "George Harrison"},
			{"In what year did MTV first go on the air?", "1981"},
			{"What was Elvis Presley's middle name?", "Aaron"},
			{"Who was the original host of American Bandstand?", "Bob Horn"},
			{"Who was the lead singer of The Doors?", "Jim Morrison"},
			{"Which pop star sang 'Like a Virgin' in 1984?", "Madonna"},
			{"What year did the Woodstock music festival take place?", "1969"},
			{"Who was known as the 'Man in Black'?", "Johnny Cash"},
			{"What was the first music video played on MTV?", "Video Killed the Radio Star by The Buggles"},
			{"What was the first album to sell over 30 million copies worldwide?", "Thriller by Michael Jackson"},
			{"Who wrote the song 'Me and Bobby McGee'?", "Kris Kristofferson"},
			{"Which guitarist was nicknamed 'Slowhand'?", "Eric Clapton"},
			{"What city was the original Motown headquarters located in?", "Detroit, Michigan"},
			{"Who was the first woman inducted into the Rock & Roll Hall of Fame?", "Aretha Franklin"},
		},
		"Movies & TV": {
			{"In Cheers, what was the name of the bar's know-it-all mailman?", "Cliff Clavin"},
			{"Who played Dirty Harry in the 1971 film?", "Clint Eastwood"},
			{"What movie won the first-ever Academy Award for Best Picture?", "Wings"},
			{"In The Golden Girls, which character was from St. Olaf, Minnesota?", "Rose Nylund"},
			{"Who shot J.R. in Dallas?", "Kristin Shepard"},
			{"What 1975 movie is credited with creating the concept of the 'summer blockbuster'?", "Jaws"},
			{"Who played Rocky Balboa's trainer, Mickey, in the Rocky films?", "Burgess Meredith"},
			{"In I Love Lucy, what was Lucy's husband's first name?", "Ricky"},
			{"Which actor voiced Darth Vader in the original Star Wars trilogy?", "James Earl Jones"},
			{"What TV show featured the catchphrase 'Book 'em, Danno'?", "Hawaii Five-O"},
			{"What was the name of Quint's boat in Jaws?", "The Orca"},
			{"In the original Twilight Zone series, who was the show's creator and narrator?", "Rod Serling"},
			{"Which 1970s sci-fi film features the ship 'Discovery One'?", "2001: A Space Odyssey"},
			{"In The Godfather, who wakes up with a horse's head in his bed?", "Jack Woltz"},
			{"What actor turned down the role of Han Solo before Harrison Ford got it?", "Al Pacino"},
		},
		"Sports": {
			{"Who holds the MLB record for most career home runs?", "Barry Bonds"},
			{"What NFL team won the first Super Bowl in 1967?", "Green Bay Packers"},
			{"Who was known as 'The Greatest' in boxing?", "Muhammad Ali"},
			{"In golf, what's the term for three under par on a single hole?", "Albatross"},
			{"Which NHL team has the most Stanley Cup wins?", "Montreal Canadiens"},
			{"Who was the first NBA player to score 100 points in a single game?", "Wilt Chamberlain"},
			{"Which country won the FIFA World Cup in 1982?", "Italy"},
			{"In baseball, what is the term for hitting a home run with the bases loaded?", "Grand slam"},
			{"Who was the first woman to run the Boston Marathon officially?", "Kathrine Switzer"},
			{"What horse won the Triple Crown in 1973?", "Secretariat"},
			{"Who was the first baseball player to have his number retired?", "Lou Gehrig"},
			{"Which country won the first-ever FIFA Women's World Cup in 1991?", "United States"},
			{"In what year did the NHL officially merge with the WHA?", "1979"},
			{"What was the last MLB team to integrate racially?", "Boston Red Sox"},
			{"Who was the first NBA player drafted number one straight out of high school?", "Kwame Brown"},
		},
		"General Knowledge": {
			{"What's the capital of Canada?", "Ottawa"},
			{"Who invented the telephone?", "Alexander Graham Bell"},
			{"How many sides does a stop sign have?", "Eight"},
			{"What's the world's largest ocean?", "Pacific Ocean"},
			{"Which U.S. president appears on the $2 bill?", "Thomas Jefferson"},
			{"What is the smallest U.S. state by land area?", "Rhode Island"},
			{"Who painted the ceiling of the Sistine Chapel?", "Michelangelo"},
			{"What's the chemical symbol for gold?", "Au"},
			{"What is the largest desert in the world?", "Antarctic Desert"},
			{"What was the first U.S. state?", "Delaware"},
			{"What year did the Berlin Wall fall?", "1989"},
			{"Who invented the lightbulb?", "Thomas Edison"},
			{"What's the only country in the world named after a woman?", "Saint Lucia"},
			{"What U.S. state has the most ghost towns?", "Texas"},
			{"What's the rarest M&M color?", "Brown"},
		},
		"Science & Medical": {
			{"What is the largest internal organ in the human body?", "Liver"},
			{"How many chambers are in the human heart?", "Four"},
			{"What is the medical term for the kneecap?", "Patella"},
			{"Which part of the brain controls balance and coordination?", "Cerebellum"},
			{"What is the longest bone in the human body?", "Femur"},
			{"What disease is caused by a deficiency of vitamin D?", "Rickets"},
			{"What is the medical term for high blood pressure?", "Hypertension"},
			{"Which viral disease has been completely eradicated worldwide?", "Smallpox"},
			{"What is the medical term for a heart attack?", "Myocardial infarction"},
			{"What condition is known as 'the bends'?", "Decompression sickness"},
			{"Who is known as the 'Father of Medicine'?", "Hippocrates"},
			{"In what year was penicillin discovered?", "1928"},
			{"Who invented the first practical stethoscope?", "René Laennec"},
			{"What was the first vaccine ever developed?", "Smallpox vaccine"},
			{"What part of the human body can regenerate itself?", "Liver"},
		},
		"Animals": {
			{"What is the largest mammal in the world?", "Blue Whale"},
			{"How many hearts does an octopus have?", "3"},
			{"What is a group of lions called?", "Pride"},
			{"Which animal is known as the 'Ship of the Desert'?", "Camel"},
			{"How many legs does a spider have?", "8"},
			{"What is the fastest land animal?", "Cheetah"},
			{"Which bird cannot fly but is the fastest runner?", "Ostrich"},
			{"What do you call a baby kangaroo?", "Joey"},
			{"Which animal has the longest lifespan?", "Tortoise"},
			{"What is the largest type of penguin?", "Emperor penguin"},
			{"Which animal has the longest migration route?", "Arctic tern"},
			{"What's the only venomous lizard native to the United States?", "Gila monster"},
			{"Which mammal can survive the longest without drinking water?", "Kangaroo rat"},
			{"What is the largest living bird by weight?", "Ostrich"},
			{"Which animal has the most powerful bite force in the animal kingdom?", "Saltwater crocodile"},
		},
		"Geography": {
			{"What is the capital of Australia?", "Canberra"},
			{"Which river is the longest in the world?", "Nile"},
			{"How many continents are there?", "7"},
			{"Which is the smallest country in the world?", "Vatican City"},
			{"What is the tallest mountain in the world?", "Mount Everest"},
			{"Which desert is the largest in the world?", "Antarctica"},
			{"What is the deepest ocean trench?", "Mariana Trench"},
			{"Which country has the most time zones?", "France"},
			{"What is the longest river in South America?", "Amazon River"},
			{"Which African country is completely surrounded by South Africa?", "Lesotho"},
			{"Which country has the most lakes in the world?", "Canada"},
			{"What is the capital of Kazakhstan?", "Astana"},
			{"Which European capital city is built on 14 islands?", "Stockholm"},
			{"Which African country has the largest population?", "Nigeria"},
			{"What is the deepest point in the world's oceans?", "Mariana Trench"},
		},
	}
}
