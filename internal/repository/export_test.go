package repository

var TranslateForTest = translate
