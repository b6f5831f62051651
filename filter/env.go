package filter

/*
Here the Env used in the subscription filters is defined.
Once this struct is fixed, it should not be changed, otherwise filters stored
by connected clients may not compile any more (f.e. if properties are renamed).
*/

type Sender struct {
	Username    string
	AgeGroup    string
	Initials    string
	AvatarColor string
}

type Env struct {
	Event  string
	RoomId int64
	Sender Sender
}
