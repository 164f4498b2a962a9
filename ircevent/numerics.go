package ircevent

// Numeric replies handled by the client (RFC 1459, RFC 2812 and common
// extensions).
const (
	RPL_WELCOME          = "001"
	RPL_YOURHOST         = "002"
	RPL_CREATED          = "003"
	RPL_MYINFO           = "004"
	RPL_ISUPPORT         = "005"
	RPL_BOUNCE           = "010"
	RPL_STATSLINKINFO    = "211"
	RPL_STATSCOMMANDS    = "212"
	RPL_STATSCLINE       = "213"
	RPL_STATSNLINE       = "214"
	RPL_STATSILINE       = "215"
	RPL_STATSKLINE       = "216"
	RPL_STATSYLINE       = "218"
	RPL_ENDOFSTATS       = "219"
	RPL_UMODEIS          = "221"
	RPL_STATSLLINE       = "241"
	RPL_STATSUPTIME      = "242"
	RPL_STATSOLINE       = "243"
	RPL_STATSHLINE       = "244"
	RPL_LUSERCLIENT      = "251"
	RPL_LUSEROP          = "252"
	RPL_LUSERUNKNOWN     = "253"
	RPL_LUSERCHANNELS    = "254"
	RPL_LUSERME          = "255"
	RPL_LOCALUSERS       = "265"
	RPL_GLOBALUSERS      = "266"
	RPL_AWAY             = "301"
	RPL_USERHOST         = "302"
	RPL_ISON             = "303"
	RPL_UNAWAY           = "305"
	RPL_NOWAWAY          = "306"
	RPL_WHOISUSER        = "311"
	RPL_WHOISSERVER      = "312"
	RPL_WHOISOPERATOR    = "313"
	RPL_WHOWASUSER       = "314"
	RPL_ENDOFWHO         = "315"
	RPL_WHOISIDLE        = "317"
	RPL_ENDOFWHOIS       = "318"
	RPL_WHOISCHANNELS    = "319"
	RPL_LISTSTART        = "321"
	RPL_LIST             = "322"
	RPL_LISTEND          = "323"
	RPL_CHANNELMODEIS    = "324"
	RPL_NOTOPIC          = "331"
	RPL_TOPIC            = "332"
	RPL_TOPICWHOTIME     = "333"
	RPL_INVITING         = "341"
	RPL_VERSION          = "351"
	RPL_WHOREPLY         = "352"
	RPL_NAMREPLY         = "353"
	RPL_LINKS            = "364"
	RPL_ENDOFLINKS       = "365"
	RPL_ENDOFNAMES       = "366"
	RPL_ENDOFWHOWAS      = "369"
	RPL_MOTD             = "372"
	RPL_MOTDSTART        = "375"
	RPL_ENDOFMOTD        = "376"
	RPL_YOUREOPER        = "381"
	RPL_YOURESERVICE     = "383"
	RPL_TIME             = "391"
	ERR_NOMOTD           = "422"
	ERR_ERRONEUSNICKNAME = "432"
	ERR_NICKNAMEINUSE    = "433"
	ERR_UNAVAILRESOURCE  = "437"

	// the error reply family
	errorNumericRange = "400-599"
)

// statsNumerics are the RPL_STATS* entries collected until RPL_ENDOFSTATS.
// 231-235 sit inside their span but belong to SERVICE and SERVLIST.
var statsNumerics = []string{
	RPL_STATSLINKINFO, RPL_STATSCOMMANDS, RPL_STATSCLINE, RPL_STATSNLINE,
	RPL_STATSILINE, RPL_STATSKLINE, RPL_STATSYLINE, RPL_STATSLLINE,
	RPL_STATSUPTIME, RPL_STATSOLINE, RPL_STATSHLINE,
}
