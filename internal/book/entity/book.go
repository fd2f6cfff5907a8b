package entity

// Book represents a row in the `books` table.
type Book struct {
	ISBN      string `db:"isbn" json:"isbn"`
	AmazonURL string `db:"amazon_url" json:"amazon_url"`
	Author    string `db:"author" json:"author"`
	Language  string `db:"language" json:"language"`
	Pages     int    `db:"pages" json:"pages"`
	Publisher string `db:"publisher" json:"publisher"`
	Title     string `db:"title" json:"title"`
	Year      int    `db:"year" json:"year"`
}
